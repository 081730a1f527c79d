// Package kinematics derives per-sample motion from raw tracking samples.
//
// Samples are partitioned by entity, each partition is stably ordered by
// timestamp, and a sequential scan computes displacement, elapsed time,
// distance and speed against the previous sample of the same entity.
// Partitioning happens before any differencing, so a sample can never be
// compared with another entity's position.
//
// Undefined values (first sample of an entity, speed over a zero time step)
// are nil pointers rather than NaN so aggregations must decide how to treat
// them.
//
// Everything here is a pure function of its input: no caching, no package
// state, and inputs are never modified.
package kinematics
