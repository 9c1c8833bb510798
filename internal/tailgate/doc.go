// Package tailgate turns per-image 3D vehicle detections into candidate
// tailgating pairs and derives, for each pair that survives the lane and
// heading filters, the following distance and the speed difference that
// would break a two-second time headway.
//
// Stages run per image in a fixed order: depth ordering, pair formation,
// heading canonicalisation, lane filter, heading filter, metrics. Images
// share no mutable state, so a Detector may process them concurrently.
//
// No SQL, plotting or file IO is allowed in this package; those live in
// internal/db, internal/visualiser and internal/kitti.
package tailgate
