/*
Package library manages named graphs kept in a ports.GraphStore.

It serializes access per name inside the process with reference-counted
locks and, when a ports.DistributedLocker is configured, across processes
too. Update performs a locked read-modify-write of a stored graph.
*/
package library
