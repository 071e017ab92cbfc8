package octomap

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// UpdateNode integrates a single occupancy measurement at a world coordinate,
// adding the sensor model's hit or miss increment to the containing voxel.
// Out-of-range coordinates return nil and leave the tree unchanged.
//
// With lazy true, inner-node aggregates are not refreshed; the tree is only
// consistent for finest-depth queries until UpdateInnerOccupancy is called.
func (tree *OcTree) UpdateNode(v r3.Vector, occupied, lazy bool) *OcTreeNode {
	key, ok := tree.CoordToKey(v)
	if !ok {
		tree.logger.Debugf("update at (%f, %f, %f) dropped, coordinate out of octree bounds", v.X, v.Y, v.Z)
		return nil
	}
	return tree.UpdateNodeKey(key, occupied, lazy)
}

// UpdateNodeLogOdds adds an arbitrary log-odds increment to the voxel
// containing a world coordinate. Out-of-range coordinates return nil.
func (tree *OcTree) UpdateNodeLogOdds(v r3.Vector, delta float64, lazy bool) *OcTreeNode {
	key, ok := tree.CoordToKey(v)
	if !ok {
		tree.logger.Debugf("update at (%f, %f, %f) dropped, coordinate out of octree bounds", v.X, v.Y, v.Z)
		return nil
	}
	return tree.UpdateNodeKeyLogOdds(key, delta, lazy)
}

// UpdateNodeKey integrates a single occupancy measurement at a voxel key.
func (tree *OcTree) UpdateNodeKey(key Key, occupied, lazy bool) *OcTreeNode {
	delta := tree.model.ProbMissLog
	if occupied {
		delta = tree.model.ProbHitLog
	}
	return tree.UpdateNodeKeyLogOdds(key, delta, lazy)
}

// UpdateNodeKeyLogOdds adds an arbitrary log-odds increment to the voxel at a
// key. Keys outside an enabled bounding box are dropped silently.
func (tree *OcTree) UpdateNodeKeyLogOdds(key Key, delta float64, lazy bool) *OcTreeNode {
	if tree.useBBXLimit && !tree.KeyInBBX(key) {
		tree.logger.Debugf("update at key (%d, %d, %d) dropped, outside bounding box", key.X, key.Y, key.Z)
		return nil
	}
	justCreated := false
	if tree.root == nil {
		tree.root = newOcTreeNode()
		justCreated = true
	}
	return tree.updateNodeRecurs(tree.root, justCreated, key, 0, delta, lazy)
}

func (tree *OcTree) updateNodeRecurs(node *OcTreeNode, justCreated bool, key Key, depth int, delta float64, lazy bool) *OcTreeNode {
	if depth < TreeDepth {
		created := false
		pos := ChildIndex(key, depth)
		if !node.ChildExists(pos) {
			if !node.HasChildren() && !justCreated {
				// childless inner node, i.e. a pruned subtree: when the leaf
				// already sits at the clamping bound the update pushes
				// towards, the whole subtree stays as it is
				if tree.updateSaturated(node, delta) {
					return node
				}
				node.ExpandNode()
			} else {
				node.CreateChild(pos)
				created = true
			}
		}

		if lazy {
			return tree.updateNodeRecurs(node.Child(pos), created, key, depth+1, delta, lazy)
		}
		ret := tree.updateNodeRecurs(node.Child(pos), created, key, depth+1, delta, lazy)
		if node.ChildrenIdentical() {
			node.PruneNode()
			ret = node
		} else {
			node.UpdateOccupancyChildren()
		}
		return ret
	}

	// terminal depth
	if tree.useChangeDetection {
		tree.changedKeys.Insert(key)
	}
	node.AddLogOdds(delta, &tree.model)
	return node
}

// updateSaturated is the early-termination predicate of the recursive update:
// a leaf already at the extreme value in the update's direction cannot move.
func (tree *OcTree) updateSaturated(node *OcTreeNode, delta float64) bool {
	l := node.LogOdds()
	return (delta >= 0 && l >= tree.model.ClampingThresMax) ||
		(delta <= 0 && l <= tree.model.ClampingThresMin)
}

// UpdateInnerOccupancy refreshes every inner node's value to the maximum over
// its children, bottom-up. Call it after a batch of lazy updates and before
// Prune or any coarse-depth query.
func (tree *OcTree) UpdateInnerOccupancy() {
	if tree.root == nil {
		return
	}
	tree.updateInnerOccupancyRecurs(tree.root, 0)
}

func (tree *OcTree) updateInnerOccupancyRecurs(node *OcTreeNode, depth int) {
	if !node.HasChildren() {
		return
	}
	if depth < TreeDepth {
		for i := 0; i < 8; i++ {
			if child := node.Child(i); child != nil {
				tree.updateInnerOccupancyRecurs(child, depth+1)
			}
		}
	}
	node.UpdateOccupancyChildren()
}

// ToMaxLikelihood saturates every leaf to the clamping bound matching its
// occupancy classification and refreshes the inner nodes. The result stores
// one bit of information per leaf, which is what the binary codec writes out.
func (tree *OcTree) ToMaxLikelihood() {
	if tree.root == nil {
		return
	}
	tree.toMaxLikelihoodRecurs(tree.root, 0)
}

func (tree *OcTree) toMaxLikelihoodRecurs(node *OcTreeNode, depth int) {
	if !node.HasChildren() {
		node.ToMaxLikelihood(&tree.model)
		return
	}
	if depth < TreeDepth {
		for i := 0; i < 8; i++ {
			if child := node.Child(i); child != nil {
				tree.toMaxLikelihoodRecurs(child, depth+1)
			}
		}
	}
	node.UpdateOccupancyChildren()
}

// IsNodeOccupied classifies a node against the tree's occupancy threshold.
func (tree *OcTree) IsNodeOccupied(n OccupancyNode) bool {
	return n.LogOdds() >= tree.model.OccProbThresLog
}

// IsNodeAtThreshold reports whether a node's value sits at either clamping
// bound and thus carries no more than one bit of occupancy information.
func (tree *OcTree) IsNodeAtThreshold(n OccupancyNode) bool {
	l := n.LogOdds()
	return l <= tree.model.ClampingThresMin || l >= tree.model.ClampingThresMax
}

// CalcNumThresholdedNodes counts the nodes at a clamping bound and the rest.
func (tree *OcTree) CalcNumThresholdedNodes() (thresholded, other int) {
	tree.calcNumThresholdedNodesRecurs(tree.root, &thresholded, &other)
	return thresholded, other
}

func (tree *OcTree) calcNumThresholdedNodesRecurs(node *OcTreeNode, thresholded, other *int) {
	if node == nil {
		return
	}
	if tree.IsNodeAtThreshold(node) {
		*thresholded++
	} else {
		*other++
	}
	if node.children != nil {
		for _, child := range node.children {
			tree.calcNumThresholdedNodesRecurs(child, thresholded, other)
		}
	}
}

// SensorModel returns the tree's current sensor model.
func (tree *OcTree) SensorModel() SensorModel {
	return tree.model
}

// SetProbHit sets the sensor model probability of a voxel being occupied
// given that a beam ended in it; it must be greater than 0.5.
func (tree *OcTree) SetProbHit(prob float64) error {
	if !(prob > 0.5 && prob < 1) {
		return errors.Errorf("invalid hit probability %f, must be in (0.5, 1)", prob)
	}
	tree.model.ProbHitLog = LogOdds(prob)
	return nil
}

// SetProbMiss sets the sensor model probability of a voxel being occupied
// given that a beam passed through it; it must be less than 0.5.
func (tree *OcTree) SetProbMiss(prob float64) error {
	if !(prob > 0 && prob < 0.5) {
		return errors.Errorf("invalid miss probability %f, must be in (0, 0.5)", prob)
	}
	tree.model.ProbMissLog = LogOdds(prob)
	return nil
}

// SetOccupancyThres sets the probability at or above which a voxel classifies
// as occupied.
func (tree *OcTree) SetOccupancyThres(prob float64) error {
	if !(prob > 0 && prob < 1) {
		return errors.Errorf("invalid occupancy threshold %f, must be in (0, 1)", prob)
	}
	tree.model.OccProbThresLog = LogOdds(prob)
	return nil
}

// SetClampingThresMin sets the lower saturation bound of voxel values.
func (tree *OcTree) SetClampingThresMin(prob float64) error {
	if !(prob > 0 && prob < 1) {
		return errors.Errorf("invalid clamping threshold %f, must be in (0, 1)", prob)
	}
	min := LogOdds(prob)
	if min >= tree.model.ClampingThresMax {
		return errors.Errorf("clamping minimum %f not below maximum %f", min, tree.model.ClampingThresMax)
	}
	tree.model.ClampingThresMin = min
	return nil
}

// SetClampingThresMax sets the upper saturation bound of voxel values.
func (tree *OcTree) SetClampingThresMax(prob float64) error {
	if !(prob > 0 && prob < 1) {
		return errors.Errorf("invalid clamping threshold %f, must be in (0, 1)", prob)
	}
	max := LogOdds(prob)
	if max <= tree.model.ClampingThresMin {
		return errors.Errorf("clamping maximum %f not above minimum %f", max, tree.model.ClampingThresMin)
	}
	tree.model.ClampingThresMax = max
	return nil
}

// ProbHit returns the sensor model hit probability.
func (tree *OcTree) ProbHit() float64 { return Probability(tree.model.ProbHitLog) }

// ProbMiss returns the sensor model miss probability.
func (tree *OcTree) ProbMiss() float64 { return Probability(tree.model.ProbMissLog) }

// OccupancyThres returns the occupancy classification threshold probability.
func (tree *OcTree) OccupancyThres() float64 { return Probability(tree.model.OccProbThresLog) }

// ClampingThresMin returns the lower clamping bound as a probability.
func (tree *OcTree) ClampingThresMin() float64 { return Probability(tree.model.ClampingThresMin) }

// ClampingThresMax returns the upper clamping bound as a probability.
func (tree *OcTree) ClampingThresMax() float64 { return Probability(tree.model.ClampingThresMax) }

// UseBBXLimit restricts or unrestricts updates to the configured bounding box.
func (tree *OcTree) UseBBXLimit(enable bool) {
	tree.useBBXLimit = enable
}

// BBXSet reports whether the bounding box limit is active.
func (tree *OcTree) BBXSet() bool {
	return tree.useBBXLimit
}

// SetBBXMin sets the minimum corner of the update bounding box.
func (tree *OcTree) SetBBXMin(min r3.Vector) error {
	key, ok := tree.CoordToKey(min)
	if !ok {
		return errors.Errorf("bounding box minimum (%f, %f, %f) out of octree bounds", min.X, min.Y, min.Z)
	}
	tree.bbxMin = min
	tree.bbxMinKey = key
	return nil
}

// SetBBXMax sets the maximum corner of the update bounding box.
func (tree *OcTree) SetBBXMax(max r3.Vector) error {
	key, ok := tree.CoordToKey(max)
	if !ok {
		return errors.Errorf("bounding box maximum (%f, %f, %f) out of octree bounds", max.X, max.Y, max.Z)
	}
	tree.bbxMax = max
	tree.bbxMaxKey = key
	return nil
}

// BBXMin returns the currently set bounding box minimum.
func (tree *OcTree) BBXMin() r3.Vector { return tree.bbxMin }

// BBXMax returns the currently set bounding box maximum.
func (tree *OcTree) BBXMax() r3.Vector { return tree.bbxMax }

// BBXBounds returns the half extent of the bounding box.
func (tree *OcTree) BBXBounds() r3.Vector {
	return tree.bbxMax.Sub(tree.bbxMin).Mul(0.5)
}

// BBXCenter returns the center of the bounding box.
func (tree *OcTree) BBXCenter() r3.Vector {
	return tree.bbxMin.Add(tree.BBXBounds())
}

// InBBX reports whether a world point lies inside the bounding box.
func (tree *OcTree) InBBX(p r3.Vector) bool {
	return tree.bbxMin.X <= p.X && p.X <= tree.bbxMax.X &&
		tree.bbxMin.Y <= p.Y && p.Y <= tree.bbxMax.Y &&
		tree.bbxMin.Z <= p.Z && p.Z <= tree.bbxMax.Z
}

// KeyInBBX reports whether a key lies inside the bounding box keys.
func (tree *OcTree) KeyInBBX(k Key) bool {
	return tree.bbxMinKey.X <= k.X && k.X <= tree.bbxMaxKey.X &&
		tree.bbxMinKey.Y <= k.Y && k.Y <= tree.bbxMaxKey.Y &&
		tree.bbxMinKey.Z <= k.Z && k.Z <= tree.bbxMaxKey.Z
}

// EnableChangeDetection toggles recording of updated finest-depth keys.
func (tree *OcTree) EnableChangeDetection(enable bool) {
	tree.useChangeDetection = enable
}

// ChangeDetectionEnabled reports whether updated keys are being recorded.
func (tree *OcTree) ChangeDetectionEnabled() bool {
	return tree.useChangeDetection
}

// ResetChangeSet forgets all recorded changes. Call it after consuming
// ChangedKeys.
func (tree *OcTree) ResetChangeSet() {
	tree.changedKeys = NewKeySet()
}

// NumChangesDetected returns the number of distinct keys touched since the
// last reset.
func (tree *OcTree) NumChangesDetected() int {
	return len(tree.changedKeys)
}

// ChangedKeys returns the keys touched since the last reset, in no particular
// order.
func (tree *OcTree) ChangedKeys() []Key {
	keys := make([]Key, 0, len(tree.changedKeys))
	for k := range tree.changedKeys {
		keys = append(keys, k)
	}
	return keys
}
