/*
Package session keeps running groups alive across requests.

A session is a persisted Snapshot: the group name and the vector of every live machine.
The Manager restores the group for each dispatch, applies the message and saves the new
vector. Dispatches on one session are serialized by a reference-counted local lock and,
across replicas, by an optional DistributedLocker.
*/
package session
