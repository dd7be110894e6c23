/*
Package session serializes access to individual sessions.

Runs of the same session are mutually exclusive while distinct sessions proceed
concurrently. Within a process this is a reference-counted lock per session ID;
across replicas an optional ports.DistributedLocker is taken as well.
*/
package session
