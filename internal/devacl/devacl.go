// Package devacl grants and revokes per-user read/write entries on the
// POSIX access ACL of device files. ACLs are manipulated through the
// system.posix_acl_access extended attribute, so no cgo or external helper
// is needed; the kernel applies each setxattr atomically.
package devacl

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const xattrAccess = "system.posix_acl_access"

// Controller mutates device file ACLs. The zero value is not usable; call
// New. The xattr and stat hooks exist so tests can run against an
// in-memory store.
type Controller struct {
	getxattr func(path, attr string) ([]byte, error)
	setxattr func(path, attr string, data []byte) error
	fileMode func(path string) (os.FileMode, error)
}

func New() *Controller {
	return &Controller{
		getxattr: getxattr,
		setxattr: func(path, attr string, data []byte) error {
			return unix.Setxattr(path, attr, data, 0)
		},
		fileMode: func(path string) (os.FileMode, error) {
			info, err := os.Stat(path)
			if err != nil {
				return 0, err
			}
			return info.Mode(), nil
		},
	}
}

// Grant ensures exactly one ACL entry granting uid read+write exists on
// path. Existing group entries and other users' entries are preserved.
// Calling Grant again for the same uid is a no-op beyond refreshing the
// entry's permissions.
func (c *Controller) Grant(path string, uid uint32) error {
	entries, err := c.readEntries(path)
	if err != nil {
		return fmt.Errorf("read acl of %s: %w", path, err)
	}

	found := false
	for i := range entries {
		if entries[i].tag == tagUser && entries[i].id == uid {
			entries[i].perm = permRead | permWrite
			found = true
		}
	}
	if !found {
		entries = append(entries, aclEntry{tag: tagUser, perm: permRead | permWrite, id: uid})
	}

	entries = withMask(entries)
	if err := c.setxattr(path, xattrAccess, marshalEntries(entries)); err != nil {
		return fmt.Errorf("set acl of %s: %w", path, err)
	}
	return nil
}

// Revoke deletes the per-user entry for uid from path's access ACL, if one
// exists. Every entry is examined since entry order is unspecified; group
// entries are never touched. Revoking a uid that holds no entry succeeds
// without modifying the file.
func (c *Controller) Revoke(path string, uid uint32) error {
	data, err := c.getxattr(path, xattrAccess)
	if err != nil {
		if isNoACL(err) {
			return nil
		}
		return fmt.Errorf("read acl of %s: %w", path, err)
	}
	entries, err := unmarshalEntries(data)
	if err != nil {
		return fmt.Errorf("decode acl of %s: %w", path, err)
	}

	kept := entries[:0:0]
	removed := false
	for _, e := range entries {
		if e.tag == tagUser && e.id == uid {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if !removed {
		return nil
	}

	if hasNamedEntries(kept) {
		kept = withMask(kept)
	} else {
		kept = withoutMask(kept)
	}
	if err := c.setxattr(path, xattrAccess, marshalEntries(kept)); err != nil {
		return fmt.Errorf("set acl of %s: %w", path, err)
	}
	return nil
}

// readEntries returns the current ACL, synthesizing the minimal ACL from
// the file mode when no extended attribute is present yet.
func (c *Controller) readEntries(path string) ([]aclEntry, error) {
	data, err := c.getxattr(path, xattrAccess)
	if err != nil {
		if isNoACL(err) {
			mode, statErr := c.fileMode(path)
			if statErr != nil {
				return nil, statErr
			}
			return baseEntries(mode), nil
		}
		return nil, err
	}
	return unmarshalEntries(data)
}

func baseEntries(mode os.FileMode) []aclEntry {
	perm := uint32(mode.Perm())
	return []aclEntry{
		{tag: tagUserObj, perm: uint16(perm >> 6 & 7), id: idUndefined},
		{tag: tagGroupObj, perm: uint16(perm >> 3 & 7), id: idUndefined},
		{tag: tagOther, perm: uint16(perm & 7), id: idUndefined},
	}
}

func isNoACL(err error) bool {
	return errors.Is(err, unix.ENODATA) || errors.Is(err, unix.ENOTSUP)
}

func getxattr(path, attr string) ([]byte, error) {
	for {
		size, err := unix.Getxattr(path, attr, nil)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size)
		n, err := unix.Getxattr(path, attr, buf)
		if errors.Is(err, unix.ERANGE) {
			// Attribute grew between the two calls.
			continue
		}
		if err != nil {
			return nil, err
		}
		return buf[:n], nil
	}
}
