package octomap

import "math"

// OccupancyNode is the capability set a leaf payload provides to the occupancy
// machinery: log-odds access, sensor integration with clamping, and
// maximum-likelihood reduction. Tree flavors with richer payloads compose a
// type satisfying this interface.
type OccupancyNode interface {
	// LogOdds returns the stored log-odds occupancy value.
	LogOdds() float64

	// SetLogOdds overwrites the stored log-odds occupancy value.
	SetLogOdds(l float64)

	// Occupancy returns the stored value as a probability.
	Occupancy() float64

	// IntegrateHit adds the model's hit increment, clamped.
	IntegrateHit(m *SensorModel)

	// IntegrateMiss adds the model's miss increment, clamped.
	IntegrateMiss(m *SensorModel)

	// AddLogOdds adds an arbitrary log-odds increment, clamped.
	AddLogOdds(delta float64, m *SensorModel)

	// ToMaxLikelihood saturates the value to the model's clamping maximum if
	// the node classifies as occupied and to the clamping minimum otherwise.
	ToMaxLikelihood(m *SensorModel)
}

// OcTreeNode is a node of an occupancy octree: a log-odds value plus eight
// child slots. A node with no children is a leaf; a pruned subtree is a leaf
// standing in for eight identical descendants.
type OcTreeNode struct {
	logOdds  float64
	children *[8]*OcTreeNode
}

var _ OccupancyNode = (*OcTreeNode)(nil)

func newOcTreeNode() *OcTreeNode {
	return &OcTreeNode{}
}

// LogOdds returns the node's log-odds occupancy value.
func (n *OcTreeNode) LogOdds() float64 {
	return n.logOdds
}

// SetLogOdds overwrites the node's log-odds occupancy value.
func (n *OcTreeNode) SetLogOdds(l float64) {
	n.logOdds = l
}

// Occupancy returns the node's occupancy probability.
func (n *OcTreeNode) Occupancy() float64 {
	return Probability(n.logOdds)
}

// IntegrateHit adds the model's hit increment, clamped.
func (n *OcTreeNode) IntegrateHit(m *SensorModel) {
	n.logOdds = m.clamp(n.logOdds + m.ProbHitLog)
}

// IntegrateMiss adds the model's miss increment, clamped.
func (n *OcTreeNode) IntegrateMiss(m *SensorModel) {
	n.logOdds = m.clamp(n.logOdds + m.ProbMissLog)
}

// AddLogOdds adds an arbitrary log-odds increment, clamped.
func (n *OcTreeNode) AddLogOdds(delta float64, m *SensorModel) {
	n.logOdds = m.clamp(n.logOdds + delta)
}

// ToMaxLikelihood saturates the node to the extreme value matching its
// occupancy classification.
func (n *OcTreeNode) ToMaxLikelihood(m *SensorModel) {
	if n.logOdds >= m.OccProbThresLog {
		n.logOdds = m.ClampingThresMax
	} else {
		n.logOdds = m.ClampingThresMin
	}
}

// HasChildren reports whether any child slot is occupied.
func (n *OcTreeNode) HasChildren() bool {
	if n.children == nil {
		return false
	}
	for _, child := range n.children {
		if child != nil {
			return true
		}
	}
	return false
}

// ChildExists reports whether child slot i is occupied.
func (n *OcTreeNode) ChildExists(i int) bool {
	return n.children != nil && n.children[i] != nil
}

// Child returns the child in slot i, or nil.
func (n *OcTreeNode) Child(i int) *OcTreeNode {
	if n.children == nil {
		return nil
	}
	return n.children[i]
}

// CreateChild allocates a fresh node in slot i and returns it.
func (n *OcTreeNode) CreateChild(i int) *OcTreeNode {
	if n.children == nil {
		n.children = &[8]*OcTreeNode{}
	}
	child := newOcTreeNode()
	n.children[i] = child
	return child
}

// DeleteChild drops the subtree in slot i.
func (n *OcTreeNode) DeleteChild(i int) {
	if n.children == nil {
		return
	}
	n.children[i] = nil
	for _, child := range n.children {
		if child != nil {
			return
		}
	}
	n.children = nil
}

// NumChildren returns the number of occupied child slots.
func (n *OcTreeNode) NumChildren() int {
	if n.children == nil {
		return 0
	}
	count := 0
	for _, child := range n.children {
		if child != nil {
			count++
		}
	}
	return count
}

// ChildrenIdentical reports whether the node has eight leaf children all
// holding the same log-odds value, i.e. whether the node is prunable.
func (n *OcTreeNode) ChildrenIdentical() bool {
	if n.children == nil {
		return false
	}
	first := n.children[0]
	if first == nil || first.HasChildren() {
		return false
	}
	for _, child := range n.children[1:] {
		if child == nil || child.HasChildren() || child.logOdds != first.logOdds {
			return false
		}
	}
	return true
}

// ExpandNode turns a childless node into an inner node with eight children
// carrying the node's value, the inverse of pruning.
func (n *OcTreeNode) ExpandNode() {
	for i := 0; i < 8; i++ {
		n.CreateChild(i).SetLogOdds(n.logOdds)
	}
}

// PruneNode collapses a node whose children are identical leaves into a leaf
// holding their shared value. The caller must have checked ChildrenIdentical.
func (n *OcTreeNode) PruneNode() {
	n.logOdds = n.children[0].logOdds
	n.children = nil
}

// UpdateOccupancyChildren refreshes the node's value to the maximum log-odds
// over its existing children. The maximum keeps an occupied sub-voxel visible
// at coarser query depths.
func (n *OcTreeNode) UpdateOccupancyChildren() {
	n.logOdds = n.maxChildLogOdds()
}

func (n *OcTreeNode) maxChildLogOdds() float64 {
	max := math.Inf(-1)
	if n.children != nil {
		for _, child := range n.children {
			if child != nil && child.logOdds > max {
				max = child.logOdds
			}
		}
	}
	return max
}
