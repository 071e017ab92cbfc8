package octomap

import (
	"math"

	"github.com/golang/geo/r3"
)

// ComputeRayKeys traces the straight line from origin to end over the
// finest-depth voxel grid (Amanatides-Woo traversal) and collects the keys of
// the traversed voxels into ray. The voxel containing origin is included, the
// voxel containing end is not. It returns false when either endpoint is
// outside the representable coordinate range.
func (tree *OcTree) ComputeRayKeys(origin, end r3.Vector, ray *KeyRay) bool {
	ray.reset()

	originKey, ok := tree.CoordToKey(origin)
	if !ok {
		tree.logger.Warnf("ray origin (%f, %f, %f) out of octree bounds", origin.X, origin.Y, origin.Z)
		return false
	}
	endKey, ok := tree.CoordToKey(end)
	if !ok {
		tree.logger.Warnf("ray end (%f, %f, %f) out of octree bounds", end.X, end.Y, end.Z)
		return false
	}
	if originKey == endKey {
		return true
	}

	direction := end.Sub(origin)
	length := direction.Norm()
	direction = direction.Mul(1 / length)

	current, step, tMax, tDelta := tree.initTraversal(origin, originKey, direction)
	ray.add(originKey)

	for {
		dim := minTMaxAxis(tMax)
		if step[dim] == 0 {
			// degenerate direction, cannot make progress
			return true
		}
		current[dim] += step[dim]
		tMax[dim] += tDelta[dim]

		key := Key{X: uint16(current[0]), Y: uint16(current[1]), Z: uint16(current[2])}
		if key == endKey {
			return true
		}
		// safeguard against infinite loops when the endpoint is missed by
		// floating point error
		if math.Min(math.Min(tMax[0], tMax[1]), tMax[2]) > length {
			return true
		}
		ray.add(key)
	}
}

// CastRay casts a ray from origin in the given direction and returns the
// center of the first occupied voxel it hits. The voxel containing origin is
// examined first, so a ray starting inside an occupied voxel hits
// immediately. The traversal stops without a hit when it exceeds maxRange
// (<= 0 means unlimited), leaves the representable key range, or enters an
// unknown voxel while ignoreUnknown is false. The returned point is the
// center of the last examined voxel, except for an origin outside the
// representable range, where origin itself is returned.
func (tree *OcTree) CastRay(origin, direction r3.Vector, ignoreUnknown bool, maxRange float64) (r3.Vector, bool) {
	currentKey, ok := tree.CoordToKey(origin)
	if !ok {
		tree.logger.Warnf("raycast origin (%f, %f, %f) out of octree bounds", origin.X, origin.Y, origin.Z)
		return origin, false
	}

	if node := tree.Search(currentKey); node != nil {
		if tree.IsNodeOccupied(node) {
			return tree.KeyToCoord(currentKey), true
		}
	} else if !ignoreUnknown {
		return tree.KeyToCoord(currentKey), false
	}

	norm := direction.Norm()
	if norm == 0 {
		tree.logger.Warnf("raycast with zero direction vector")
		return tree.KeyToCoord(currentKey), false
	}
	dir := direction.Mul(1 / norm)

	current, step, tMax, tDelta := tree.initTraversal(origin, currentKey, dir)
	if step[0] == 0 && step[1] == 0 && step[2] == 0 {
		tree.logger.Warnf("raycast with zero direction vector")
		return tree.KeyToCoord(currentKey), false
	}

	end := tree.KeyToCoord(currentKey)
	for {
		dim := minTMaxAxis(tMax)
		current[dim] += step[dim]
		tMax[dim] += tDelta[dim]

		if current[dim] < 0 || current[dim] >= 1<<TreeDepth {
			tree.logger.Debugf("raycast left the representable key range")
			return end, false
		}
		key := Key{X: uint16(current[0]), Y: uint16(current[1]), Z: uint16(current[2])}
		end = tree.KeyToCoord(key)

		if maxRange > 0 && end.Sub(origin).Norm() > maxRange {
			return end, false
		}

		node := tree.Search(key)
		if node != nil {
			if tree.IsNodeOccupied(node) {
				return end, true
			}
		} else if !ignoreUnknown {
			return end, false
		}
	}
}

// initTraversal computes the starting state of a voxel traversal: the integer
// voxel coordinates, per-axis step direction, the distance along the ray to
// the first voxel border crossing per axis, and the distance between
// crossings per axis.
func (tree *OcTree) initTraversal(origin r3.Vector, originKey Key, dir r3.Vector) (current, step [3]int, tMax, tDelta [3]float64) {
	current = [3]int{int(originKey.X), int(originKey.Y), int(originKey.Z)}
	originComp := [3]float64{origin.X, origin.Y, origin.Z}
	dirComp := [3]float64{dir.X, dir.Y, dir.Z}
	voxelCenter := tree.KeyToCoord(originKey)
	centerComp := [3]float64{voxelCenter.X, voxelCenter.Y, voxelCenter.Z}

	for i := 0; i < 3; i++ {
		switch {
		case dirComp[i] > 0:
			step[i] = 1
		case dirComp[i] < 0:
			step[i] = -1
		}
		if step[i] == 0 {
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
			continue
		}
		border := centerComp[i] + float64(step[i])*tree.resolution/2
		tMax[i] = (border - originComp[i]) / dirComp[i]
		tDelta[i] = tree.resolution / math.Abs(dirComp[i])
	}
	return current, step, tMax, tDelta
}

// minTMaxAxis picks the axis with the smallest tMax, ties resolved in x, y, z
// order.
func minTMaxAxis(tMax [3]float64) int {
	dim := 0
	if tMax[1] < tMax[dim] {
		dim = 1
	}
	if tMax[2] < tMax[dim] {
		dim = 2
	}
	return dim
}

// IntegrateMissOnRay updates every voxel between origin and end as free; the
// voxel containing end is not updated. It returns false when the ray cannot
// be computed.
func (tree *OcTree) IntegrateMissOnRay(origin, end r3.Vector, lazy bool) bool {
	if !tree.ComputeRayKeys(origin, end, &tree.keyRay) {
		return false
	}
	for _, key := range tree.keyRay.Keys() {
		tree.UpdateNodeKey(key, false, lazy)
	}
	return true
}
