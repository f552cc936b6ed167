package topology

// AdjacencyPolicy is the directed table of kinds a kind may connect to.
// It is not symmetric: apiGateway reaches restApi, but restApi does not list
// apiGateway.
type AdjacencyPolicy map[Kind][]Kind

// DefaultPolicy returns the payment-gateway connection rules.
func DefaultPolicy() AdjacencyPolicy {
	return AdjacencyPolicy{
		KindAPIGateway: {KindRESTAPI, KindRPC},
		KindRESTAPI:    {KindService, KindRedis, KindPostgres},
		KindRPC:        {KindService, KindPostgres, KindKafka},
		KindService:    {KindPostgres, KindRedis, KindKafka, KindService},
		KindKafka:      {KindService, KindRPC},
		KindRedis:      {KindService, KindRESTAPI},
		KindPostgres:   {KindService, KindRESTAPI, KindRPC},
		KindAPI:        {KindService, KindCache, KindDatabase},
		KindQueue:      {KindService, KindRPC},
		KindCache:      {KindService, KindAPI},
		KindDatabase:   {KindService, KindAPI, KindRPC},
	}
}

// Allows reports whether from may connect to to.
func (p AdjacencyPolicy) Allows(from, to Kind) bool {
	for _, k := range p[from] {
		if k == to {
			return true
		}
	}
	return false
}

// Either reports whether a and b may connect in at least one direction.
func (p AdjacencyPolicy) Either(a, b Kind) bool {
	return p.Allows(a, b) || p.Allows(b, a)
}
