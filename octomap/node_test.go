package octomap

import (
	"testing"

	"go.viam.com/test"
)

func TestNodeIntegration(t *testing.T) {
	model := DefaultSensorModel()

	t.Run("hit and miss accumulate in log-odds", func(t *testing.T) {
		n := newOcTreeNode()
		n.IntegrateHit(&model)
		test.That(t, n.LogOdds(), test.ShouldAlmostEqual, LogOdds(0.7))
		n.IntegrateMiss(&model)
		test.That(t, n.LogOdds(), test.ShouldAlmostEqual, LogOdds(0.7)+LogOdds(0.4))
	})

	t.Run("hits clamp at the maximum", func(t *testing.T) {
		n := newOcTreeNode()
		for i := 0; i < 100; i++ {
			n.IntegrateHit(&model)
		}
		test.That(t, n.LogOdds(), test.ShouldEqual, model.ClampingThresMax)
	})

	t.Run("misses clamp at the minimum", func(t *testing.T) {
		n := newOcTreeNode()
		for i := 0; i < 100; i++ {
			n.IntegrateMiss(&model)
		}
		test.That(t, n.LogOdds(), test.ShouldEqual, model.ClampingThresMin)
	})

	t.Run("arbitrary log-odds increments clamp too", func(t *testing.T) {
		n := newOcTreeNode()
		n.AddLogOdds(1000, &model)
		test.That(t, n.LogOdds(), test.ShouldEqual, model.ClampingThresMax)
		n.AddLogOdds(-2000, &model)
		test.That(t, n.LogOdds(), test.ShouldEqual, model.ClampingThresMin)
	})

	t.Run("occupancy is the probability of the stored value", func(t *testing.T) {
		n := newOcTreeNode()
		test.That(t, n.Occupancy(), test.ShouldAlmostEqual, 0.5)
		n.IntegrateHit(&model)
		test.That(t, n.Occupancy(), test.ShouldAlmostEqual, 0.7)
	})
}

func TestNodeToMaxLikelihood(t *testing.T) {
	model := DefaultSensorModel()

	n := newOcTreeNode()
	n.SetLogOdds(0.2)
	n.ToMaxLikelihood(&model)
	test.That(t, n.LogOdds(), test.ShouldEqual, model.ClampingThresMax)

	n.SetLogOdds(-0.2)
	n.ToMaxLikelihood(&model)
	test.That(t, n.LogOdds(), test.ShouldEqual, model.ClampingThresMin)

	// applying twice changes nothing
	n.ToMaxLikelihood(&model)
	test.That(t, n.LogOdds(), test.ShouldEqual, model.ClampingThresMin)
}

func TestNodeChildren(t *testing.T) {
	n := newOcTreeNode()
	test.That(t, n.HasChildren(), test.ShouldBeFalse)
	test.That(t, n.NumChildren(), test.ShouldEqual, 0)
	test.That(t, n.Child(3), test.ShouldBeNil)

	child := n.CreateChild(3)
	test.That(t, n.HasChildren(), test.ShouldBeTrue)
	test.That(t, n.ChildExists(3), test.ShouldBeTrue)
	test.That(t, n.ChildExists(4), test.ShouldBeFalse)
	test.That(t, n.Child(3), test.ShouldEqual, child)
	test.That(t, n.NumChildren(), test.ShouldEqual, 1)

	n.DeleteChild(3)
	test.That(t, n.HasChildren(), test.ShouldBeFalse)
}

func TestChildrenIdentical(t *testing.T) {
	n := newOcTreeNode()
	test.That(t, n.ChildrenIdentical(), test.ShouldBeFalse)

	for i := 0; i < 8; i++ {
		n.CreateChild(i).SetLogOdds(1.5)
	}
	test.That(t, n.ChildrenIdentical(), test.ShouldBeTrue)

	n.Child(5).SetLogOdds(1.5000001)
	test.That(t, n.ChildrenIdentical(), test.ShouldBeFalse)

	n.Child(5).SetLogOdds(1.5)
	test.That(t, n.ChildrenIdentical(), test.ShouldBeTrue)

	// a missing child blocks pruning
	n.DeleteChild(2)
	test.That(t, n.ChildrenIdentical(), test.ShouldBeFalse)

	// a grandchild blocks pruning
	n.CreateChild(2).SetLogOdds(1.5)
	n.Child(2).CreateChild(0)
	test.That(t, n.ChildrenIdentical(), test.ShouldBeFalse)
}

func TestExpandAndPruneNode(t *testing.T) {
	n := newOcTreeNode()
	n.SetLogOdds(0.9)
	n.ExpandNode()

	test.That(t, n.NumChildren(), test.ShouldEqual, 8)
	for i := 0; i < 8; i++ {
		test.That(t, n.Child(i).LogOdds(), test.ShouldEqual, 0.9)
	}

	test.That(t, n.ChildrenIdentical(), test.ShouldBeTrue)
	n.PruneNode()
	test.That(t, n.HasChildren(), test.ShouldBeFalse)
	test.That(t, n.LogOdds(), test.ShouldEqual, 0.9)
}

func TestUpdateOccupancyChildren(t *testing.T) {
	n := newOcTreeNode()
	n.CreateChild(0).SetLogOdds(-1.2)
	n.CreateChild(4).SetLogOdds(2.5)
	n.CreateChild(7).SetLogOdds(0.1)

	n.UpdateOccupancyChildren()
	test.That(t, n.LogOdds(), test.ShouldEqual, 2.5)
}
