package rbac

const (
	RolePsychologist         = "psychologist"
	RoleExternalProfessional = "external_professional"
	RoleAssistant            = "assistant"
	RoleAdmin                = "admin"
)

const (
	PermTestsView       = "tests:view"
	PermTestsScore      = "tests:score"
	PermTestsSuggest    = "tests:suggest"
	PermEvaluationsView = "evaluations:view"
	PermEvaluationsAll  = "evaluations:view_all" // other owners' evaluations
	PermStockView       = "stock:view"
	PermStockRestock    = "stock:restock"
)

// Default policy. External professionals score with their own answer
// sheets; stock deduction exemption is configured separately.
var RolePermissions = map[string][]string{
	RolePsychologist: {
		"tests:*",
		PermEvaluationsView,
		PermStockView,
	},
	RoleExternalProfessional: {
		"tests:*",
		PermEvaluationsView,
	},
	RoleAssistant: {
		PermTestsView,
		PermTestsSuggest,
		"stock:*",
	},
	RoleAdmin: {
		"*", // everything
	},
}
