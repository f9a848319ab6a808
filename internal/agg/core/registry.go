package core

var registry = map[string]Aggregator{}

func Register(a Aggregator)      { registry[a.Name()] = a }
func Get(name string) Aggregator { return registry[name] }

func Enabled(names []string) []Aggregator {
	out := make([]Aggregator, 0, len(names))
	for _, n := range names {
		if a := Get(n); a != nil {
			out = append(out, a)
		}
	}
	return out
}
