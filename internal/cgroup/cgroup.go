// Package cgroup wraps the cgroup v2 unified hierarchy as a tree of node
// handles. Each session gets its own leaf node; the manager's node is
// converted to an inner node at startup so session leaves are siblings of
// the manager, not descendants.
package cgroup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	procsFile  = "cgroup.procs"
	eventsFile = "cgroup.events"
	freezeFile = "cgroup.freeze"

	procSelfCgroup = "/proc/self/cgroup"

	// DefaultMountPoint is where current kernels mount the unified hierarchy.
	DefaultMountPoint = "/sys/fs/cgroup"
)

var (
	// ErrNoCgroup2 means the calling process is not in a cgroup v2 hierarchy.
	ErrNoCgroup2 = errors.New("cgroup v2 hierarchy not available")

	// ErrIsLeaf means a child node was requested under a node that still
	// holds processes directly. Callers must MakeInner first.
	ErrIsLeaf = errors.New("cgroup still holds processes")
)

// InvalidPIDError reports a cgroup.procs line that is not a process id.
// This signals corruption of the backing file, not an expected condition.
type InvalidPIDError struct {
	Entry string
}

func (e *InvalidPIDError) Error() string {
	return fmt.Sprintf("invalid pid entry in cgroup.procs: %q", e.Entry)
}

// Node is a handle to one node of the hierarchy.
type Node struct {
	path string
}

// Detect verifies that a cgroup v2 filesystem is mounted at mountPoint.
func Detect(mountPoint string) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(mountPoint, &stat); err != nil {
		return fmt.Errorf("stat %s: %w", mountPoint, err)
	}
	if stat.Type != unix.CGROUP2_SUPER_MAGIC {
		return fmt.Errorf("%w: no cgroup2 mount at %s", ErrNoCgroup2, mountPoint)
	}
	return nil
}

// Open returns a handle to the node at path, creating the directory if it
// does not exist yet.
func Open(path string) (*Node, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create cgroup %s: %w", path, err)
	}
	return &Node{path: path}, nil
}

// Self resolves the calling process's current cgroup under mountPoint.
func Self(mountPoint string) (*Node, error) {
	data, err := os.ReadFile(procSelfCgroup)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", procSelfCgroup, err)
	}
	rel, err := selfRelPath(data)
	if err != nil {
		return nil, err
	}
	return Open(filepath.Join(mountPoint, rel))
}

// selfRelPath extracts the v2 ("0::") entry from /proc/self/cgroup content.
func selfRelPath(data []byte) (string, error) {
	for _, line := range strings.Split(string(data), "\n") {
		if rel, ok := strings.CutPrefix(line, "0::"); ok {
			return strings.TrimPrefix(rel, "/"), nil
		}
	}
	return "", ErrNoCgroup2
}

// Path returns the node's directory in the hierarchy.
func (n *Node) Path() string {
	return n.path
}

// MakeInner converts this node into an inner node: it snapshots the full
// member list first, creates the child, then re-homes every process, so no
// process is left stranded halfway. Callers who cannot rule out concurrent
// process creation under the node should Freeze it first.
func (n *Node) MakeInner(name string) (*Node, error) {
	pids, err := n.PIDs()
	if err != nil {
		return nil, err
	}
	child, err := n.subgroup(name)
	if err != nil {
		return nil, err
	}
	for _, pid := range pids {
		if err := child.MoveInto(pid); err != nil {
			return nil, err
		}
	}
	return child, nil
}

// NewLeaf creates a child node for direct process membership. It fails with
// ErrIsLeaf while this node itself still holds processes; that is the
// leaf/inner invariant, not a filesystem limitation.
func (n *Node) NewLeaf(name string) (*Node, error) {
	pids, err := n.PIDs()
	if err != nil {
		return nil, err
	}
	if len(pids) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrIsLeaf, n.path)
	}
	return n.subgroup(name)
}

func (n *Node) subgroup(name string) (*Node, error) {
	return Open(filepath.Join(n.path, name))
}

// MoveInto adds pid to this node's direct membership.
func (n *Node) MoveInto(pid int) error {
	f, err := os.OpenFile(filepath.Join(n.path, procsFile), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open cgroup.procs in %s: %w", n.path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(strconv.Itoa(pid) + "\n"); err != nil {
		return fmt.Errorf("move pid %d into %s: %w", pid, n.path, err)
	}
	return nil
}

// Freeze suspends scheduling of every process transitively contained in
// this node.
func (n *Node) Freeze() error {
	return n.writeFreeze("1")
}

// Thaw resumes scheduling after Freeze.
func (n *Node) Thaw() error {
	return n.writeFreeze("0")
}

func (n *Node) writeFreeze(v string) error {
	if err := os.WriteFile(filepath.Join(n.path, freezeFile), []byte(v), 0o644); err != nil {
		return fmt.Errorf("write cgroup.freeze in %s: %w", n.path, err)
	}
	return nil
}

// IsPopulated reports whether any process lives in this node or below it.
func (n *Node) IsPopulated() (bool, error) {
	return n.eventFlag("populated")
}

// IsFrozen reports whether the node is currently frozen.
func (n *Node) IsFrozen() (bool, error) {
	return n.eventFlag("frozen")
}

func (n *Node) eventFlag(key string) (bool, error) {
	data, err := os.ReadFile(filepath.Join(n.path, eventsFile))
	if err != nil {
		return false, fmt.Errorf("read cgroup.events in %s: %w", n.path, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		k, v, ok := strings.Cut(line, " ")
		if ok && k == key {
			return v == "1", nil
		}
	}
	return false, nil
}

// PIDs returns the processes homed directly in this node.
func (n *Node) PIDs() ([]int, error) {
	data, err := os.ReadFile(filepath.Join(n.path, procsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cgroup.procs in %s: %w", n.path, err)
	}
	var pids []int
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			return nil, &InvalidPIDError{Entry: line}
		}
		pids = append(pids, pid)
	}
	return pids, nil
}
