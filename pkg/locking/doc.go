/*
Package locking serializes transitions of the same entity.

A Manager keeps one reference-counted lock per key in process memory and can
additionally take a distributed lock (see ports.DistributedLocker) so that
replicas sharing a history store do not interleave transitions of one entity.
*/
package locking
