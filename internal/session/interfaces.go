package session

// CgroupLeaf is a session's private resource-group node.
type CgroupLeaf interface {
	MoveInto(pid int) error
	Path() string
}

// CgroupRoot creates session leaves. It is the manager's own cgroup after
// it has been converted to an inner node at startup.
type CgroupRoot interface {
	NewLeaf(name string) (CgroupLeaf, error)
}

// DeviceACL grants and revokes a user's read/write access to a device file.
type DeviceACL interface {
	Grant(path string, uid uint32) error
	Revoke(path string, uid uint32) error
}
