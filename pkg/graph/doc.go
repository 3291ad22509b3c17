/*
Package graph holds positioned layer vertices and the port-to-port edges between them.

Every edge connects an output port to an input port and carries a derived consistency
flag: it is consistent when the source port's value compares equal to the target
port's value under the target's comparison semantics. The flag is recomputed by
UpdateEdgeConsistenciesFrom whenever a field edit may have changed a port value;
SetLayerFields does this automatically for the edited vertex.

ValidateEdge performs every structural check of CreateEdge without mutating the graph,
so user interfaces can preflight a connection.
*/
package graph
