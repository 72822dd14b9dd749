package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-norms/internal/app"
	"github.com/mind-engage/mindengage-norms/internal/evaluation"
	"github.com/mind-engage/mindengage-norms/internal/norms"
	"github.com/mind-engage/mindengage-norms/internal/selector"
)

// profileFlags binds the examinee profile onto fs.
type profileFlags struct {
	age       int
	birthDate string
	education string
	region    string
	transit   string
}

func (p *profileFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&p.age, "age", -1, "examinee age in years (negative means unknown)")
	fs.StringVar(&p.birthDate, "birth-date", "", "examinee birth date, YYYY-MM-DD")
	fs.StringVar(&p.education, "education", "", "education level")
	fs.StringVar(&p.region, "region", "", "examinee region")
	fs.StringVar(&p.transit, "transit", "", "transit context: first_license|renewal|category_change|professional")
}

func (p *profileFlags) profile() selector.Profile {
	out := selector.Profile{
		BirthDate:      p.birthDate,
		Education:      p.education,
		Region:         p.region,
		TransitContext: p.transit,
	}
	if p.age >= 0 {
		age := p.age
		out.Age = &age
	}
	return out
}

func testType(s string) (norms.TestType, error) {
	tt, ok := norms.ParseTestType(strings.TrimSpace(s))
	if !ok {
		return "", errors.Errorf("unknown test type %q", s)
	}
	return tt, nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) suggestCmd() *ffcli.Command {
	fs := flag.NewFlagSet("normsctl suggest", flag.ContinueOnError)
	test := fs.String("test", "", "test type")
	var pf profileFlags
	pf.register(fs)
	return &ffcli.Command{
		Name:       "suggest",
		ShortUsage: "normsctl suggest -test <type> [profile flags]",
		ShortHelp:  "rank the normative tables of a test for a profile",
		FlagSet:    fs,
		Exec: func(ctx context.Context, _ []string) error {
			tt, err := testType(*test)
			if err != nil {
				return err
			}
			return c.withApp(ctx, func(a *app.App) error {
				res, err := a.Orchestrator.Suggest(ctx, tt, pf.profile())
				if err != nil {
					return err
				}
				return c.printJSON(res)
			})
		},
	}
}

func (c *cli) scoreCmd() *ffcli.Command {
	fs := flag.NewFlagSet("normsctl score", flag.ContinueOnError)
	test := fs.String("test", "", "test type")
	input := fs.String("input", "", "raw answers as a JSON object")
	table := fs.Int64("table", 0, "explicit table id (0 selects automatically)")
	owner := fs.Int64("owner", 0, "user id recorded in the calculation log")
	var pf profileFlags
	pf.register(fs)
	return &ffcli.Command{
		Name:       "score",
		ShortUsage: "normsctl score -test <type> -input '<json>' [flags]",
		ShortHelp:  "score raw answers without saving them to an evaluation",
		FlagSet:    fs,
		Exec: func(ctx context.Context, _ []string) error {
			tt, err := testType(*test)
			if err != nil {
				return err
			}
			req := evaluation.Request{
				TestType: tt,
				Profile:  pf.profile(),
				RawInput: []byte(*input),
				Mode:     evaluation.ModeUnlinked,
				Owner:    evaluation.Identity{OwnerID: *owner},
				Origin:   "normsctl",
			}
			if *table > 0 {
				req.TableID = table
			}
			return c.withApp(ctx, func(a *app.App) error {
				resp, err := a.Orchestrator.Calculate(ctx, req)
				var ve *evaluation.ValidationError
				if errors.As(err, &ve) && ve.Result != nil {
					_ = c.printJSON(ve.Result)
				}
				if err != nil {
					return err
				}
				return c.printJSON(resp)
			})
		},
	}
}

func (c *cli) stockCmd() *ffcli.Command {
	listFS := flag.NewFlagSet("normsctl stock list", flag.ContinueOnError)
	list := &ffcli.Command{
		Name:       "list",
		ShortUsage: "normsctl stock list",
		ShortHelp:  "show stock levels",
		FlagSet:    listFS,
		Exec: func(ctx context.Context, _ []string) error {
			return c.withApp(ctx, func(a *app.App) error {
				items, err := a.Stock.ListItems(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tITEM\tQUANTITY")
				for _, it := range items {
					fmt.Fprintf(tw, "%d\t%s\t%d\n", it.ID, it.Name, it.Quantity)
				}
				return tw.Flush()
			})
		},
	}

	restockFS := flag.NewFlagSet("normsctl stock restock", flag.ContinueOnError)
	name := restockFS.String("item", "", "stock item name")
	qty := restockFS.Int("qty", 0, "sheets received")
	user := restockFS.Int64("user", 0, "user id recorded on the movement")
	note := restockFS.String("note", "", "movement note")
	restock := &ffcli.Command{
		Name:       "restock",
		ShortUsage: "normsctl stock restock -item <name> -qty <n> [-note <text>]",
		ShortHelp:  "record received answer sheets",
		FlagSet:    restockFS,
		Exec: func(ctx context.Context, _ []string) error {
			if strings.TrimSpace(*name) == "" {
				return errors.New("-item is required")
			}
			return c.withApp(ctx, func(a *app.App) error {
				it, err := a.Stock.Restock(ctx, strings.TrimSpace(*name), *qty, *user, *note)
				if err != nil {
					return err
				}
				return c.printJSON(it)
			})
		},
	}

	movFS := flag.NewFlagSet("normsctl stock movements", flag.ContinueOnError)
	itemID := movFS.Int64("id", 0, "stock item id")
	limit := movFS.Int("limit", 20, "max movements")
	movements := &ffcli.Command{
		Name:       "movements",
		ShortUsage: "normsctl stock movements -id <item id> [-limit n]",
		ShortHelp:  "show the latest movements of an item",
		FlagSet:    movFS,
		Exec: func(ctx context.Context, _ []string) error {
			return c.withApp(ctx, func(a *app.App) error {
				list, err := a.Stock.Movements(ctx, *itemID, *limit)
				if err != nil {
					return err
				}
				return c.printJSON(list)
			})
		},
	}

	return &ffcli.Command{
		Name:        "stock",
		ShortUsage:  "normsctl stock <list|restock|movements>",
		ShortHelp:   "answer sheet inventory",
		FlagSet:     flag.NewFlagSet("normsctl stock", flag.ContinueOnError),
		Subcommands: []*ffcli.Command{list, restock, movements},
		Exec:        func(context.Context, []string) error { return flag.ErrHelp },
	}
}

func (c *cli) logCmd() *ffcli.Command {
	fs := flag.NewFlagSet("normsctl log", flag.ContinueOnError)
	owner := fs.Int64("owner", 0, "only this user's calculations (0 for all)")
	limit := fs.Int("limit", 20, "max entries")
	return &ffcli.Command{
		Name:       "log",
		ShortUsage: "normsctl log [-owner id] [-limit n]",
		ShortHelp:  "show recent unsaved calculations",
		FlagSet:    fs,
		Exec: func(ctx context.Context, _ []string) error {
			return c.withApp(ctx, func(a *app.App) error {
				entries, err := a.CalcLog.Recent(ctx, *owner, *limit)
				if err != nil {
					return err
				}
				return c.printJSON(entries)
			})
		},
	}
}
