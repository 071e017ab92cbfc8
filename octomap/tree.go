// Package octomap implements a probabilistic 3D occupancy map as an octree
// whose leaves hold log-odds occupancy estimates. The tree is updated
// incrementally from range-sensor measurements and queried by coordinate,
// key, raycast, or bounded traversal.
//
// The tree has a fixed maximum depth of 16. At a resolution of 1 cm,
// coordinates have to stay within +/- 327.68 meters of the origin per axis.
// That limitation buys an integer key encoding that makes tree descent pure
// bit arithmetic. Individual measurement points are not retained; the map is
// voxelized.
package octomap

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// OcTree is an occupancy octree. All operations run synchronously on the
// caller's goroutine; the tree must not be mutated concurrently.
type OcTree struct {
	logger     golog.Logger
	root       *OcTreeNode
	resolution float64
	model      SensorModel

	useBBXLimit bool
	bbxMin      r3.Vector
	bbxMax      r3.Vector
	bbxMinKey   Key
	bbxMaxKey   Key

	useChangeDetection bool
	changedKeys        KeySet

	keyRay KeyRay
}

// New creates an empty occupancy octree with the given leaf resolution in
// meters per voxel.
func New(resolution float64, logger golog.Logger) (*OcTree, error) {
	if resolution <= 0 {
		return nil, errors.Errorf("invalid resolution (%f) for octree", resolution)
	}
	return &OcTree{
		logger:      logger,
		resolution:  resolution,
		model:       DefaultSensorModel(),
		changedKeys: NewKeySet(),
	}, nil
}

// Resolution returns the side length of a finest-depth voxel.
func (tree *OcTree) Resolution() float64 {
	return tree.resolution
}

// Root returns the root node, or nil while the tree is empty.
func (tree *OcTree) Root() *OcTreeNode {
	return tree.root
}

// Clear removes all nodes from the tree. Parameters, bounding box and the
// change set are kept.
func (tree *OcTree) Clear() {
	tree.root = nil
}

// CoordToKey converts a world coordinate to the key of the finest-depth voxel
// containing it. The second return is false when the coordinate is outside
// the representable range of +/- 2^15 voxels per axis.
func (tree *OcTree) CoordToKey(v r3.Vector) (Key, bool) {
	kx, okX := tree.coordComponentToKey(v.X)
	ky, okY := tree.coordComponentToKey(v.Y)
	kz, okZ := tree.coordComponentToKey(v.Z)
	if !okX || !okY || !okZ {
		return Key{}, false
	}
	return Key{X: kx, Y: ky, Z: kz}, true
}

// CoordToKeyAtDepth converts a world coordinate to the key of its containing
// voxel at the given depth.
func (tree *OcTree) CoordToKeyAtDepth(v r3.Vector, depth int) (Key, bool) {
	key, ok := tree.CoordToKey(v)
	if !ok {
		return Key{}, false
	}
	return AdjustKeyAtDepth(key, depth), true
}

func (tree *OcTree) coordComponentToKey(c float64) (uint16, bool) {
	scaled := int(math.Round(c/tree.resolution)) + treeMaxVal
	if scaled < 0 || scaled >= (1<<TreeDepth) {
		return 0, false
	}
	return uint16(scaled), true
}

// KeyToCoord returns the world center of the finest-depth voxel with the
// given key.
func (tree *OcTree) KeyToCoord(k Key) r3.Vector {
	return r3.Vector{
		X: tree.keyComponentToCoord(k.X),
		Y: tree.keyComponentToCoord(k.Y),
		Z: tree.keyComponentToCoord(k.Z),
	}
}

func (tree *OcTree) keyComponentToCoord(k uint16) float64 {
	return float64(int(k)-treeMaxVal) * tree.resolution
}

// KeyToCoordAtDepth returns the world center of the voxel at the given depth
// containing the key. The voxel has side length NodeSize(depth).
func (tree *OcTree) KeyToCoordAtDepth(k Key, depth int) r3.Vector {
	if depth >= TreeDepth {
		return tree.KeyToCoord(k)
	}
	masked := AdjustKeyAtDepth(k, depth)
	half := float64(int(1)<<uint(TreeDepth-depth)-1) / 2 * tree.resolution
	base := tree.KeyToCoord(masked)
	return r3.Vector{X: base.X + half, Y: base.Y + half, Z: base.Z + half}
}

// NodeSize returns the side length of a voxel at the given depth.
func (tree *OcTree) NodeSize(depth int) float64 {
	return tree.resolution * float64(int(1)<<uint(TreeDepth-depth))
}

// Search looks up the node covering a key at the finest depth. It returns nil
// when the voxel is unknown.
func (tree *OcTree) Search(key Key) *OcTreeNode {
	return tree.SearchAtDepth(key, 0)
}

// SearchAtDepth looks up the node covering a key at the given depth; depth 0
// means the finest depth. A pruned leaf above the target depth covers the key
// and is returned as-is.
func (tree *OcTree) SearchAtDepth(key Key, depth int) *OcTreeNode {
	if tree.root == nil {
		return nil
	}
	target := depth
	if target <= 0 || target > TreeDepth {
		target = TreeDepth
	}
	node := tree.root
	for d := 0; d < target; d++ {
		child := node.Child(ChildIndex(key, d))
		if child == nil {
			if node.HasChildren() {
				// unknown: a sibling voxel is mapped, this one is not
				return nil
			}
			return node
		}
		node = child
	}
	return node
}

// SearchCoord looks up the finest-depth node containing a world coordinate.
// Out-of-range coordinates return nil.
func (tree *OcTree) SearchCoord(v r3.Vector) *OcTreeNode {
	key, ok := tree.CoordToKey(v)
	if !ok {
		tree.logger.Debugf("coordinate (%f, %f, %f) out of octree bounds", v.X, v.Y, v.Z)
		return nil
	}
	return tree.Search(key)
}

// DeleteNode removes the subtree covering the key at the given depth (0 for
// finest). Pruned ancestors are expanded on the way down so siblings keep
// their values. It reports whether anything was deleted.
func (tree *OcTree) DeleteNode(key Key, depth int) bool {
	if tree.root == nil {
		return false
	}
	if tree.SearchAtDepth(key, depth) == nil {
		// target voxel already unknown
		return false
	}
	target := depth
	if target <= 0 || target > TreeDepth {
		target = TreeDepth
	}
	if tree.deleteNodeRecurs(tree.root, 0, target, key) {
		tree.root = nil
	}
	return true
}

// deleteNodeRecurs reports whether the node itself should be removed by its
// parent after the deletion below it.
func (tree *OcTree) deleteNodeRecurs(node *OcTreeNode, depth, target int, key Key) bool {
	if depth >= target {
		return true
	}
	pos := ChildIndex(key, depth)
	if !node.ChildExists(pos) {
		if node.HasChildren() {
			// target voxel already unknown
			return false
		}
		// pruned leaf: expand so the remaining seven octants keep its value
		node.ExpandNode()
	}
	if tree.deleteNodeRecurs(node.Child(pos), depth+1, target, key) {
		node.DeleteChild(pos)
		if !node.HasChildren() {
			return true
		}
		node.UpdateOccupancyChildren()
	}
	return false
}

// Prune collapses every node whose eight children are leaves with identical
// values into a single leaf. Pruning is lossless and idempotent.
func (tree *OcTree) Prune() {
	if tree.root == nil {
		return
	}
	tree.pruneRecurs(tree.root, 0)
}

func (tree *OcTree) pruneRecurs(node *OcTreeNode, depth int) {
	if !node.HasChildren() {
		return
	}
	if depth < TreeDepth-1 {
		for i := 0; i < 8; i++ {
			if child := node.Child(i); child != nil {
				tree.pruneRecurs(child, depth+1)
			}
		}
	}
	if node.ChildrenIdentical() {
		node.PruneNode()
	}
}

// Expand recreates the children of every pruned node down to the finest
// depth, the inverse of Prune. Mostly useful in tests; the expanded tree can
// be large.
func (tree *OcTree) Expand() {
	if tree.root == nil {
		return
	}
	tree.expandRecurs(tree.root, 0)
}

func (tree *OcTree) expandRecurs(node *OcTreeNode, depth int) {
	if depth >= TreeDepth {
		return
	}
	if !node.HasChildren() {
		node.ExpandNode()
	}
	for i := 0; i < 8; i++ {
		if child := node.Child(i); child != nil {
			tree.expandRecurs(child, depth+1)
		}
	}
}

// IterateLeaves walks all leaves in pre-order, reporting each leaf's node,
// voxel center, voxel depth and side length. Leaves deeper than maxDepth are
// reported at maxDepth as their subtree's aggregate; maxDepth 0 means no
// limit. Iteration stops early when fn returns false.
func (tree *OcTree) IterateLeaves(maxDepth int, fn func(node *OcTreeNode, center r3.Vector, depth int, size float64) bool) {
	if tree.root == nil {
		return
	}
	if maxDepth <= 0 || maxDepth > TreeDepth {
		maxDepth = TreeDepth
	}
	tree.iterateLeavesRecurs(tree.root, Key{}, 0, maxDepth, fn)
}

func (tree *OcTree) iterateLeavesRecurs(
	node *OcTreeNode, key Key, depth, maxDepth int,
	fn func(node *OcTreeNode, center r3.Vector, depth int, size float64) bool,
) bool {
	if depth == maxDepth || !node.HasChildren() {
		return fn(node, tree.KeyToCoordAtDepth(key, depth), depth, tree.NodeSize(depth))
	}
	for i := 0; i < 8; i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if !tree.iterateLeavesRecurs(child, ChildKey(key, depth, i), depth+1, maxDepth, fn) {
			return false
		}
	}
	return true
}

// NumNodes returns the total number of nodes in the tree.
func (tree *OcTree) NumNodes() int {
	return countNodes(tree.root)
}

func countNodes(node *OcTreeNode) int {
	if node == nil {
		return 0
	}
	count := 1
	if node.children != nil {
		for _, child := range node.children {
			count += countNodes(child)
		}
	}
	return count
}

// NumLeafNodes returns the number of leaves in the tree.
func (tree *OcTree) NumLeafNodes() int {
	return countLeafNodes(tree.root)
}

func countLeafNodes(node *OcTreeNode) int {
	if node == nil {
		return 0
	}
	if !node.HasChildren() {
		return 1
	}
	count := 0
	for _, child := range node.children {
		count += countLeafNodes(child)
	}
	return count
}

// MetricMin returns the minimum corner of the axis-aligned bounding box of
// all mapped leaves, and false when the tree is empty.
func (tree *OcTree) MetricMin() (r3.Vector, bool) {
	min, _, ok := tree.metricBounds()
	return min, ok
}

// MetricMax returns the maximum corner of the axis-aligned bounding box of
// all mapped leaves, and false when the tree is empty.
func (tree *OcTree) MetricMax() (r3.Vector, bool) {
	_, max, ok := tree.metricBounds()
	return max, ok
}

func (tree *OcTree) metricBounds() (r3.Vector, r3.Vector, bool) {
	min := r3.Vector{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64}
	max := min.Mul(-1)
	found := false
	tree.IterateLeaves(0, func(_ *OcTreeNode, center r3.Vector, _ int, size float64) bool {
		found = true
		half := size / 2
		min.X = math.Min(min.X, center.X-half)
		min.Y = math.Min(min.Y, center.Y-half)
		min.Z = math.Min(min.Z, center.Z-half)
		max.X = math.Max(max.X, center.X+half)
		max.Y = math.Max(max.Y, center.Y+half)
		max.Z = math.Max(max.Z, center.Z+half)
		return true
	})
	return min, max, found
}
