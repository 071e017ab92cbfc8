package octomap

import (
	"github.com/golang/geo/r3"
)

// Volume is a cubic region of space reported by a traversal: the center of a
// voxel and its side length.
type Volume struct {
	Center r3.Vector
	Size   float64
}

// GetOccupied collects all volumes classified as occupied, split into binary
// volumes (value at a clamping bound) and delta volumes (anything between).
// A subtree is reported as one volume at its leaf, or at maxDepth when the
// limit cuts the descent short; maxDepth 0 means no limit. Inner nodes
// carry the maximum over their children, so a coarse volume is occupied when
// any part of it is.
func (tree *OcTree) GetOccupied(maxDepth int) (binary, delta []Volume) {
	return tree.collectVolumes(maxDepth, true)
}

// GetFreespace collects all volumes classified as free, split into binary and
// delta volumes as in GetOccupied.
func (tree *OcTree) GetFreespace(maxDepth int) (binary, delta []Volume) {
	return tree.collectVolumes(maxDepth, false)
}

func (tree *OcTree) collectVolumes(maxDepth int, wantOccupied bool) (binary, delta []Volume) {
	tree.IterateLeaves(maxDepth, func(node *OcTreeNode, center r3.Vector, _ int, size float64) bool {
		if tree.IsNodeOccupied(node) != wantOccupied {
			return true
		}
		vol := Volume{Center: center, Size: size}
		if tree.IsNodeAtThreshold(node) {
			binary = append(binary, vol)
		} else {
			delta = append(delta, vol)
		}
		return true
	})
	return binary, delta
}

// OccupiedNodeCenters returns the centers of all occupied volumes at or above
// maxDepth (0 for no limit).
func (tree *OcTree) OccupiedNodeCenters(maxDepth int) []r3.Vector {
	binary, delta := tree.GetOccupied(maxDepth)
	centers := make([]r3.Vector, 0, len(binary)+len(delta))
	for _, vol := range binary {
		centers = append(centers, vol.Center)
	}
	for _, vol := range delta {
		centers = append(centers, vol.Center)
	}
	return centers
}

// GetOccupiedLeafsBBX returns the centers of all occupied leaves whose voxels
// overlap the world-space box [min, max]. Subtrees entirely outside the box
// are skipped without descending.
func (tree *OcTree) GetOccupiedLeafsBBX(min, max r3.Vector) []r3.Vector {
	if tree.root == nil {
		return nil
	}
	minKey, okMin := tree.CoordToKey(min)
	maxKey, okMax := tree.CoordToKey(max)
	if !okMin || !okMax {
		tree.logger.Debugf("bounding box query outside octree bounds, nothing to collect")
		return nil
	}
	var centers []r3.Vector
	tree.occupiedLeafsBBXRecurs(tree.root, Key{}, 0, minKey, maxKey, &centers)
	return centers
}

func (tree *OcTree) occupiedLeafsBBXRecurs(node *OcTreeNode, key Key, depth int, minKey, maxKey Key, centers *[]r3.Vector) {
	span := uint32(1)<<uint(TreeDepth-depth) - 1
	if uint32(key.X) > uint32(maxKey.X) || uint32(key.X)+span < uint32(minKey.X) ||
		uint32(key.Y) > uint32(maxKey.Y) || uint32(key.Y)+span < uint32(minKey.Y) ||
		uint32(key.Z) > uint32(maxKey.Z) || uint32(key.Z)+span < uint32(minKey.Z) {
		return
	}

	if !node.HasChildren() {
		if tree.IsNodeOccupied(node) {
			*centers = append(*centers, tree.KeyToCoordAtDepth(key, depth))
		}
		return
	}
	for i := 0; i < 8; i++ {
		if child := node.Child(i); child != nil {
			tree.occupiedLeafsBBXRecurs(child, ChildKey(key, depth, i), depth+1, minKey, maxKey, centers)
		}
	}
}
