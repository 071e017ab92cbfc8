package octomap

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestComputeRayKeys(t *testing.T) {
	tree := newTestTree(t, 0.1)

	t.Run("straight ray includes origin voxel, excludes end voxel", func(t *testing.T) {
		var ray KeyRay
		ok := tree.ComputeRayKeys(r3.Vector{}, r3.Vector{Z: 0.5}, &ray)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, ray.Len(), test.ShouldEqual, 5)

		endKey, _ := tree.CoordToKey(r3.Vector{Z: 0.5})
		for i, key := range ray.Keys() {
			test.That(t, key, test.ShouldNotResemble, endKey)
			center := tree.KeyToCoord(key)
			test.That(t, center.Z, test.ShouldAlmostEqual, float64(i)*0.1, 1e-9)
		}
	})

	t.Run("degenerate ray inside one voxel is empty", func(t *testing.T) {
		var ray KeyRay
		ok := tree.ComputeRayKeys(r3.Vector{X: 0.01}, r3.Vector{X: 0.04}, &ray)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, ray.Len(), test.ShouldEqual, 0)
	})

	t.Run("diagonal ray stays within the endpoints' bounding box", func(t *testing.T) {
		var ray KeyRay
		origin := r3.Vector{X: 0.02, Y: -0.3, Z: 0.11}
		end := r3.Vector{X: 1.3, Y: 0.9, Z: -0.7}
		ok := tree.ComputeRayKeys(origin, end, &ray)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, ray.Len(), test.ShouldBeGreaterThan, 0)

		originKey, _ := tree.CoordToKey(origin)
		endKey, _ := tree.CoordToKey(end)
		test.That(t, ray.Keys()[0], test.ShouldResemble, originKey)
		for _, key := range ray.Keys() {
			test.That(t, key.X, test.ShouldBeGreaterThanOrEqualTo, originKey.X)
			test.That(t, key.X, test.ShouldBeLessThanOrEqualTo, endKey.X)
			test.That(t, key.Y, test.ShouldBeGreaterThanOrEqualTo, originKey.Y)
			test.That(t, key.Y, test.ShouldBeLessThanOrEqualTo, endKey.Y)
			test.That(t, key.Z, test.ShouldBeGreaterThanOrEqualTo, endKey.Z)
			test.That(t, key.Z, test.ShouldBeLessThanOrEqualTo, originKey.Z)
		}
	})

	t.Run("out of range endpoints fail", func(t *testing.T) {
		var ray KeyRay
		test.That(t, tree.ComputeRayKeys(r3.Vector{X: 5000}, r3.Vector{}, &ray), test.ShouldBeFalse)
		test.That(t, tree.ComputeRayKeys(r3.Vector{}, r3.Vector{X: 5000}, &ray), test.ShouldBeFalse)
	})
}

func TestCastRay(t *testing.T) {
	t.Run("self-hit when the origin voxel is occupied", func(t *testing.T) {
		tree := newTestTree(t, 0.1)
		tree.UpdateNode(r3.Vector{}, true, false)

		end, hit := tree.CastRay(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 0}, false, -1)
		test.That(t, hit, test.ShouldBeTrue)
		test.That(t, end, test.ShouldResemble, r3.Vector{})
	})

	t.Run("unknown origin stops the ray", func(t *testing.T) {
		tree := newTestTree(t, 0.1)
		_, hit := tree.CastRay(r3.Vector{}, r3.Vector{X: 1}, false, -1)
		test.That(t, hit, test.ShouldBeFalse)
	})

	t.Run("ray through free space hits a wall", func(t *testing.T) {
		tree := newTestTree(t, 0.1)
		tree.InsertRay(r3.Vector{}, r3.Vector{X: 1}, -1, false)

		end, hit := tree.CastRay(r3.Vector{}, r3.Vector{X: 1}, false, -1)
		test.That(t, hit, test.ShouldBeTrue)
		test.That(t, end.X, test.ShouldAlmostEqual, 1.0, 1e-9)
		test.That(t, end.Y, test.ShouldAlmostEqual, 0, 1e-9)

		// direction does not need to be normalized
		end, hit = tree.CastRay(r3.Vector{}, r3.Vector{X: 0.013}, false, -1)
		test.That(t, hit, test.ShouldBeTrue)
		test.That(t, end.X, test.ShouldAlmostEqual, 1.0, 1e-9)
	})

	t.Run("unknown cell mid-ray stops unless ignored", func(t *testing.T) {
		tree := newTestTree(t, 0.1)
		// free corridor with a gap: clear [0, 0.5], occupied at 1.0
		tree.IntegrateMissOnRay(r3.Vector{}, r3.Vector{X: 0.5}, false)
		tree.UpdateNode(r3.Vector{X: 0.5}, false, false)
		tree.UpdateNode(r3.Vector{X: 1}, true, false)

		_, hit := tree.CastRay(r3.Vector{}, r3.Vector{X: 1}, false, -1)
		test.That(t, hit, test.ShouldBeFalse)

		end, hit := tree.CastRay(r3.Vector{}, r3.Vector{X: 1}, true, -1)
		test.That(t, hit, test.ShouldBeTrue)
		test.That(t, end.X, test.ShouldAlmostEqual, 1.0, 1e-9)
	})

	t.Run("maxRange cuts the ray off", func(t *testing.T) {
		tree := newTestTree(t, 0.1)
		tree.InsertRay(r3.Vector{}, r3.Vector{X: 2}, -1, false)

		_, hit := tree.CastRay(r3.Vector{}, r3.Vector{X: 1}, false, 1.0)
		test.That(t, hit, test.ShouldBeFalse)

		end, hit := tree.CastRay(r3.Vector{}, r3.Vector{X: 1}, false, 3.0)
		test.That(t, hit, test.ShouldBeTrue)
		test.That(t, end.X, test.ShouldAlmostEqual, 2.0, 1e-9)
	})

	t.Run("zero direction cannot hit", func(t *testing.T) {
		tree := newTestTree(t, 0.1)
		tree.UpdateNode(r3.Vector{}, false, false)
		_, hit := tree.CastRay(r3.Vector{}, r3.Vector{}, false, -1)
		test.That(t, hit, test.ShouldBeFalse)
	})
}

func TestIntegrateMissOnRay(t *testing.T) {
	tree := newTestTree(t, 0.1)
	ok := tree.IntegrateMissOnRay(r3.Vector{}, r3.Vector{Z: 0.5}, false)
	test.That(t, ok, test.ShouldBeTrue)

	for z := 0.0; z < 0.45; z += 0.1 {
		node := tree.SearchCoord(r3.Vector{Z: z})
		test.That(t, node, test.ShouldNotBeNil)
		test.That(t, tree.IsNodeOccupied(node), test.ShouldBeFalse)
	}
	// the end voxel is untouched
	test.That(t, tree.SearchCoord(r3.Vector{Z: 0.5}), test.ShouldBeNil)
}
