package octomap

import (
	"github.com/golang/geo/r3"

	"github.com/eaa3/octomap/pointcloud"
	"github.com/eaa3/octomap/spatialmath"
)

// ComputeUpdate turns a scan into the sets of voxels to clear and to mark
// occupied, deduplicated across beams. Endpoints within maxRange (or all of
// them when maxRange <= 0) become occupied cells with the beam towards them
// free; beams beyond maxRange clear a truncated ray, terminal voxel
// included, and mark nothing occupied. A voxel any beam terminated in is
// never cleared: occupied wins.
func (tree *OcTree) ComputeUpdate(cloud pointcloud.PointCloud, origin r3.Vector, maxRange float64) (free, occupied KeySet) {
	free = NewKeySet()
	occupied = NewKeySet()

	cloud.Iterate(func(p r3.Vector) bool {
		beam := p.Sub(origin)
		if maxRange <= 0 || beam.Norm() <= maxRange {
			if key, ok := tree.CoordToKey(p); ok {
				occupied.Insert(key)
			} else {
				tree.logger.Debugf("endpoint (%f, %f, %f) out of octree bounds, skipped", p.X, p.Y, p.Z)
			}
			if tree.ComputeRayKeys(origin, p, &tree.keyRay) {
				for _, k := range tree.keyRay.Keys() {
					free.Insert(k)
				}
			}
		} else {
			truncated := origin.Add(beam.Mul(maxRange / beam.Norm()))
			if tree.ComputeRayKeys(origin, truncated, &tree.keyRay) {
				for _, k := range tree.keyRay.Keys() {
					free.Insert(k)
				}
				if key, ok := tree.CoordToKey(truncated); ok {
					free.Insert(key)
				}
			}
		}
		return true
	})

	for k := range occupied {
		delete(free, k)
	}
	return free, occupied
}

// InsertPointCloud integrates a scan taken from sensorOrigin, both in the map
// frame. Every voxel a beam passed through receives a miss update and every
// voxel a beam ended in receives a hit update, one each regardless of how
// many beams touched it. With prune true the tree is pruned afterwards; with
// lazy true inner aggregates are left stale (and pruning is deferred) until
// UpdateInnerOccupancy is called.
func (tree *OcTree) InsertPointCloud(cloud pointcloud.PointCloud, sensorOrigin r3.Vector, maxRange float64, prune, lazy bool) {
	free, occupied := tree.ComputeUpdate(cloud, sensorOrigin, maxRange)

	for key := range free {
		tree.UpdateNodeKey(key, false, lazy)
	}
	for key := range occupied {
		tree.UpdateNodeKey(key, true, lazy)
	}

	if prune && !lazy {
		tree.Prune()
	}
}

// InsertPointCloudPose integrates a scan whose cloud and sensor origin are
// expressed relative to a frame; the frame pose transforms both into the map
// frame before integration.
func (tree *OcTree) InsertPointCloudPose(
	cloud pointcloud.PointCloud,
	sensorOrigin r3.Vector,
	framePose spatialmath.Pose,
	maxRange float64,
	prune, lazy bool,
) {
	transformed := cloud.Transform(framePose)
	tree.InsertPointCloud(transformed, framePose.TransformPoint(sensorOrigin), maxRange, prune, lazy)
}

// InsertScan integrates a ScanNode, resolving its frame pose.
func (tree *OcTree) InsertScan(scan pointcloud.ScanNode, maxRange float64, prune, lazy bool) {
	tree.InsertPointCloudPose(scan.Cloud, scan.SensorOrigin, scan.FramePose, maxRange, prune, lazy)
}

// InsertPointCloudFromPose integrates a cloud whose sensor and frame origins
// are folded into a single pose: the cloud is relative to the pose and the
// sensor sits at the pose's translation.
//
// Deprecated: use InsertPointCloudPose with separate sensor and frame origins.
func (tree *OcTree) InsertPointCloudFromPose(cloud pointcloud.PointCloud, pose spatialmath.Pose, maxRange float64, prune bool) {
	tree.InsertPointCloudPose(cloud, r3.Vector{}, pose, maxRange, prune, false)
}

// InsertScanNaive integrates a scan beam by beam via InsertRay, without
// deduplication or conflict resolution between beams. It is a reference
// implementation for testing; InsertPointCloud is the one to use.
func (tree *OcTree) InsertScanNaive(cloud pointcloud.PointCloud, sensorOrigin r3.Vector, maxRange float64, lazy bool) {
	cloud.Iterate(func(p r3.Vector) bool {
		tree.InsertRay(sensorOrigin, p, maxRange, lazy)
		return true
	})
}

// InsertRay integrates a single beam: every voxel between origin and end is
// updated as free and the voxel containing end as occupied. When the beam is
// longer than maxRange (> 0), only the first maxRange meters are cleared and
// no voxel is marked occupied. It reports whether the tree was updated.
func (tree *OcTree) InsertRay(origin, end r3.Vector, maxRange float64, lazy bool) bool {
	beam := end.Sub(origin)
	if maxRange > 0 && beam.Norm() > maxRange {
		truncated := origin.Add(beam.Mul(maxRange / beam.Norm()))
		return tree.IntegrateMissOnRay(origin, truncated, lazy)
	}

	if !tree.IntegrateMissOnRay(origin, end, lazy) {
		return false
	}
	return tree.UpdateNode(end, true, lazy) != nil
}
