package resource

import "strconv"

// Id prefixes used by filters.
const (
	PrefixStartGroup       = "sg"
	PrefixEndGroup         = "eg"
	PrefixTextUnit         = "tu"
	PrefixDocumentPart     = "dp"
	PrefixStartSubDocument = "ssd"
	PrefixEndSubDocument   = "esd"
)

// IDGenerator hands out ids of the form "root-prefixN".
type IDGenerator struct {
	root   string
	prefix string
	seq    int
}

// NewIDGenerator returns a generator. An empty root becomes "doc".
func NewIDGenerator(root, prefix string) *IDGenerator {
	if root == "" {
		root = "doc"
	}
	return &IDGenerator{root: root, prefix: prefix}
}

// Next returns a new id.
func (g *IDGenerator) Next() string {
	g.seq++
	return g.Last()
}

// Last returns the most recent id, or "" before the first call to Next.
func (g *IDGenerator) Last() string {
	if g.seq == 0 {
		return ""
	}
	return g.root + "-" + g.prefix + strconv.Itoa(g.seq)
}

// Sequence returns the counter value.
func (g *IDGenerator) Sequence() int { return g.seq }
