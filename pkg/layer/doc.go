/*
Package layer defines computation units with named, typed ports.

A Layer owns a fixed set of fields (each backed by a value.Wrapper) and a fixed set of
ports that expose those fields as inputs or outputs. Output fields are readonly: they are
derived from the inputs by the layer's Update computation, which is atomic.

Layers are created from a closed enumeration of kinds (see Kind) and serialized to a
domain.LayerRecord. Cloning always goes through that record, so a clone never shares
mutable state with its original.
*/
package layer
