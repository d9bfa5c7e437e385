// Package authz decides which role may perform which task action. Decisions
// come from a casbin policy; some worker permissions are only granted when
// the tenant's admin settings switch them on.
package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/phrazzld/taskflow/internal/domain"
)

// Action is something a user attempts on a resource.
type Action string

// Actions checked by the lifecycle engine.
const (
	ActionCreateTask        Action = "create"
	ActionUpdateStatus      Action = "update_status"
	ActionEditTask          Action = "edit"
	ActionOverridePriority  Action = "override_priority"
	ActionClearOverride     Action = "clear_override"
	ActionOverrideDeadline  Action = "override_deadline"
	ActionDeleteTask        Action = "delete"
	ActionForwardTask       Action = "forward"
	ActionRefreshPriorities Action = "refresh_priorities"
	ActionUpdateSettings    Action = "update_settings"
)

// Grants name the admin settings that can widen a worker's permissions.
const (
	grantAlways         = "always"
	grantPriorityChange = "allow_users_priority_change"
	grantTaskForwarding = "allow_users_task_forwarding"
)

const (
	objectTask     = "task"
	objectSettings = "settings"
)

const modelText = `
[request_definition]
r = sub, obj, act, grant

[policy_definition]
p = sub, obj, act, grant

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act && (p.grant == "always" || p.grant == r.grant)
`

// defaultPolicy lists role, object, action and the grant the rule needs.
var defaultPolicy = [][]string{
	{"manager", objectTask, string(ActionCreateTask), grantAlways},
	{"manager", objectTask, string(ActionUpdateStatus), grantAlways},
	{"manager", objectTask, string(ActionEditTask), grantAlways},
	{"manager", objectTask, string(ActionOverridePriority), grantAlways},
	{"manager", objectTask, string(ActionClearOverride), grantAlways},
	{"manager", objectTask, string(ActionOverrideDeadline), grantAlways},
	{"manager", objectTask, string(ActionDeleteTask), grantAlways},
	{"manager", objectTask, string(ActionForwardTask), grantAlways},
	{"manager", objectTask, string(ActionRefreshPriorities), grantAlways},
	{"manager", objectSettings, string(ActionUpdateSettings), grantAlways},

	{"worker", objectTask, string(ActionCreateTask), grantAlways},
	{"worker", objectTask, string(ActionUpdateStatus), grantAlways},
	{"worker", objectTask, string(ActionEditTask), grantAlways},
	{"worker", objectTask, string(ActionOverridePriority), grantPriorityChange},
	{"worker", objectTask, string(ActionForwardTask), grantTaskForwarding},
}

// denyReasons are shown to the user verbatim.
var denyReasons = map[Action]string{
	ActionOverridePriority:  "priority changes by users are disabled for this tenant",
	ActionClearOverride:     "only managers can clear a priority override",
	ActionOverrideDeadline:  "only managers can override deadlines",
	ActionDeleteTask:        "only managers can delete tasks",
	ActionForwardTask:       "task forwarding by users is disabled for this tenant",
	ActionRefreshPriorities: "only managers can refresh priorities",
	ActionUpdateSettings:    "only managers can update admin settings",
}

// Authorizer evaluates the role policy.
type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
}

// New builds an Authorizer loaded with the default policy.
func New() (*Authorizer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("authz: invalid model: %w", err)
	}

	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz: creating enforcer: %w", err)
	}

	if _, err := e.AddPolicies(defaultPolicy); err != nil {
		return nil, fmt.Errorf("authz: loading policy: %w", err)
	}

	return &Authorizer{enforcer: e}, nil
}

// Allowed reports whether role may perform action. settings may be nil, in
// which case no setting-based grant applies.
func (a *Authorizer) Allowed(role domain.Role, action Action, settings *domain.AdminSettings) (bool, error) {
	obj := objectTask
	if action == ActionUpdateSettings {
		obj = objectSettings
	}

	ok, err := a.enforcer.Enforce(string(role), obj, string(action), grantFor(action, settings))
	if err != nil {
		return false, fmt.Errorf("authz: enforcing %s: %w", action, err)
	}
	return ok, nil
}

// Authorize is Allowed that returns a *domain.PermissionError on denial.
func (a *Authorizer) Authorize(role domain.Role, action Action, settings *domain.AdminSettings) error {
	ok, err := a.Allowed(role, action, settings)
	if err != nil {
		return err
	}
	if !ok {
		reason, found := denyReasons[action]
		if !found {
			reason = fmt.Sprintf("role %q may not %s", role, action)
		}
		return domain.NewPermissionError(string(action), reason)
	}
	return nil
}

// grantFor returns the grant an enabled admin setting gives for action.
func grantFor(action Action, settings *domain.AdminSettings) string {
	if settings == nil {
		return ""
	}
	switch {
	case action == ActionOverridePriority && settings.AllowUsersPriorityChange:
		return grantPriorityChange
	case action == ActionForwardTask && settings.AllowUsersTaskForwarding:
		return grantTaskForwarding
	default:
		return ""
	}
}
