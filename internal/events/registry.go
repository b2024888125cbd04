package events

import "sort"

// Families are the plural, table-style names used in event types. The
// singular form is the subject type carried on the envelope.
const (
	FamilyEntities         = "entities"
	FamilyProjects         = "projects"
	FamilyWorkspaces       = "workspaces"
	FamilyWorkspaceMembers = "workspace_members"
	FamilyAPIKeys          = "api_keys"
	FamilyTemplates        = "templates"
	FamilyMessages         = "messages"
)

// SubjectTypeFor maps a family to its subject type ("entities" -> "entity").
var subjectTypes = map[string]string{
	FamilyEntities:         "entity",
	FamilyProjects:         "project",
	FamilyWorkspaces:       "workspace",
	FamilyWorkspaceMembers: "workspace_member",
	FamilyAPIKeys:          "api_key",
	FamilyTemplates:        "template",
	FamilyMessages:         "message",
}

func SubjectTypeFor(family string) (string, bool) {
	st, ok := subjectTypes[family]
	return st, ok
}

// actionsByFamily is the closed set of verbs per family. Membership uses its
// own verbs instead of create/update/delete.
var actionsByFamily = map[string][]string{
	FamilyEntities:         {"create", "update", "delete"},
	FamilyProjects:         {"create", "update", "delete"},
	FamilyWorkspaces:       {"create", "update", "delete"},
	FamilyWorkspaceMembers: {"add", "remove", "updateRole"},
	FamilyAPIKeys:          {"create", "delete"},
	FamilyTemplates:        {"create", "update", "delete"},
	FamilyMessages:         {"create", "update", "delete"},
}

// Fixed system event types that do not follow the generated per-family grid.
const (
	TypeValidationRejected = "system.validation.rejected"
	TypeReplayRequested    = "system.replay.requested"
	TypeReplayCompleted    = "system.replay.completed"
)

var systemTypes = []string{
	TypeValidationRejected,
	TypeReplayRequested,
	TypeReplayCompleted,
}

var registry = buildRegistry()

func buildRegistry() map[string]struct{} {
	reg := make(map[string]struct{})
	phases := []Phase{PhaseRequested, PhaseValidated, PhaseCompleted}
	for family, actions := range actionsByFamily {
		for _, action := range actions {
			for _, phase := range phases {
				n := Name{Family: family, Action: action, Phase: phase}
				reg[n.String()] = struct{}{}
			}
		}
	}
	for _, t := range systemTypes {
		reg[t] = struct{}{}
	}
	return reg
}

// IsValidType reports whether name is a registered event type. Unknown
// strings return false rather than an error.
func IsValidType(name string) bool {
	_, ok := registry[name]
	return ok
}

// RegisteredTypes returns the full registry, sorted, for introspection.
func RegisteredTypes() []string {
	out := make([]string, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
