package domain

// LayerRecord is the serialized form of a layer: its type tag and the
// canonical string of every field, keyed by field id.
type LayerRecord struct {
	LayerType string            `json:"layerType"`
	ValDict   map[string]string `json:"valDict"`
}

// VertexRecord is the persisted placement of a vertex.
type VertexRecord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EdgeRecord is the persisted form of a port-to-port connection.
// Consistency is derived and therefore not stored.
type EdgeRecord struct {
	Source     string `json:"source"`
	SourcePort string `json:"sourcePort"`
	Target     string `json:"target"`
	TargetPort string `json:"targetPort"`
}

// GraphRecord groups vertices and edges by id.
type GraphRecord struct {
	Vertices map[string]VertexRecord `json:"vertices"`
	Edges    map[string]EdgeRecord   `json:"edges"`
}

// Document is the blob saved under a session name.
// It only uses keyed mappings so it can be diffed structurally.
type Document struct {
	// EdgesByVertex indexes every edge id under both of its endpoints.
	EdgesByVertex map[string]map[string]bool `json:"edgesByVertex"`
	Graph         GraphRecord                `json:"graph"`
	Layers        map[string]LayerRecord     `json:"layers"`
}

// NewDocument returns an empty document with all maps allocated.
func NewDocument() Document {
	return Document{
		EdgesByVertex: make(map[string]map[string]bool),
		Graph: GraphRecord{
			Vertices: make(map[string]VertexRecord),
			Edges:    make(map[string]EdgeRecord),
		},
		Layers: make(map[string]LayerRecord),
	}
}
