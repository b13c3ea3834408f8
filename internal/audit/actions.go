package audit

// Canonical action names, namespaced as <domain>.<operation>. These are the
// values stored in Record.Action and matched against the tracked-events
// allowlist.
const (
	ActionEntryCreate    = "entry.create"
	ActionEntryUpdate    = "entry.update"
	ActionEntryDelete    = "entry.delete"
	ActionEntryPublish   = "entry.publish"
	ActionEntryUnpublish = "entry.unpublish"

	ActionMediaCreate = "media.create"
	ActionMediaUpdate = "media.update"
	ActionMediaDelete = "media.delete"

	ActionMediaFolderCreate = "media-folder.create"
	ActionMediaFolderUpdate = "media-folder.update"
	ActionMediaFolderDelete = "media-folder.delete"

	ActionUserCreate = "user.create"
	ActionUserUpdate = "user.update"
	ActionUserDelete = "user.delete"

	ActionRoleCreate = "role.create"
	ActionRoleUpdate = "role.update"
	ActionRoleDelete = "role.delete"

	ActionPermissionCreate = "permission.create"
	ActionPermissionUpdate = "permission.update"
	ActionPermissionDelete = "permission.delete"

	ActionComponentCreate = "component.create"
	ActionComponentUpdate = "component.update"
	ActionComponentDelete = "component.delete"

	ActionContentTypeCreate = "content-type.create"
	ActionContentTypeUpdate = "content-type.update"
	ActionContentTypeDelete = "content-type.delete"

	ActionAdminAuthSuccess = "admin.auth.success"
	ActionAdminAuthFailure = "admin.auth.failure"
	ActionAdminLogout      = "admin.logout"
)

// DefaultTrackedEvents returns the full set of canonical actions. Deployments
// narrow this through configuration; an empty allowlist tracks nothing.
func DefaultTrackedEvents() []string {
	return []string{
		ActionEntryCreate, ActionEntryUpdate, ActionEntryDelete,
		ActionEntryPublish, ActionEntryUnpublish,
		ActionMediaCreate, ActionMediaUpdate, ActionMediaDelete,
		ActionMediaFolderCreate, ActionMediaFolderUpdate, ActionMediaFolderDelete,
		ActionUserCreate, ActionUserUpdate, ActionUserDelete,
		ActionRoleCreate, ActionRoleUpdate, ActionRoleDelete,
		ActionPermissionCreate, ActionPermissionUpdate, ActionPermissionDelete,
		ActionComponentCreate, ActionComponentUpdate, ActionComponentDelete,
		ActionContentTypeCreate, ActionContentTypeUpdate, ActionContentTypeDelete,
		ActionAdminAuthSuccess, ActionAdminAuthFailure, ActionAdminLogout,
	}
}
