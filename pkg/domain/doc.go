/*
Package domain contains the core domain models shared by every Lattice package.

It defines the error taxonomy, the persisted session Document and the change events
emitted by the editing engine. The package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Document: the canonical, map-only persisted form of a layer graph.
  - LayerRecord: the serialized form of a single layer (type tag + field strings).
  - ChangeEvent: notification describing a committed change and its diff.
  - Error types: ParseError, ValidationError, IncompatibleDiffError and sentinels.
*/
package domain
