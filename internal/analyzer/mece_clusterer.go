package analyzer

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ludo-technologies/connscan/domain"
)

// MECEOptions configures duplicate-algorithm clustering
type MECEOptions struct {
	Threshold       float64
	MinStatements   int
	LSHMinFunctions int
	NumHashes       int
	Bands           int
	Rows            int
	ShingleSize     int
}

// DefaultMECEOptions returns the built-in clustering settings
func DefaultMECEOptions() MECEOptions {
	return MECEOptions{
		Threshold:       0.8,
		MinStatements:   3,
		LSHMinFunctions: 500,
		NumHashes:       128,
		Bands:           32,
		Rows:            4,
		ShingleSize:     3,
	}
}

// MECEClusterer groups structurally similar functions into non-overlapping
// clusters whose minimum pairwise similarity meets the threshold
type MECEClusterer struct {
	opts MECEOptions
}

// NewMECEClusterer creates a clusterer, filling unset options with defaults
func NewMECEClusterer(opts MECEOptions) *MECEClusterer {
	def := DefaultMECEOptions()
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = def.Threshold
	}
	if opts.MinStatements <= 0 {
		opts.MinStatements = def.MinStatements
	}
	if opts.LSHMinFunctions <= 0 {
		opts.LSHMinFunctions = def.LSHMinFunctions
	}
	if opts.NumHashes <= 0 {
		opts.NumHashes = def.NumHashes
	}
	if opts.Bands <= 0 {
		opts.Bands = def.Bands
	}
	if opts.Rows <= 0 {
		opts.Rows = def.Rows
	}
	if opts.ShingleSize <= 0 {
		opts.ShingleSize = def.ShingleSize
	}
	return &MECEClusterer{opts: opts}
}

// clusterRun holds the state of one Cluster call
type clusterRun struct {
	threshold float64
	functions []FunctionFingerprint
	encoded   [][]rune
	sims      map[[2]int]float64
}

func (r *clusterRun) similarity(i, j int) float64 {
	if i == j {
		return 1.0
	}
	if i > j {
		i, j = j, i
	}
	key := [2]int{i, j}
	if s, ok := r.sims[key]; ok {
		return s
	}
	s := SequenceSimilarity(r.encoded[i], r.encoded[j])
	r.sims[key] = s
	return s
}

// lengthBound is an upper bound on similarity from sequence lengths alone
func (r *clusterRun) lengthBound(i, j int) float64 {
	a, b := len(r.encoded[i]), len(r.encoded[j])
	if a > b {
		a, b = b, a
	}
	if b == 0 {
		return 1.0
	}
	return float64(a) / float64(b)
}

// Cluster groups the fingerprints. Functions below the minimum statement
// count are ignored.
func (c *MECEClusterer) Cluster(functions []FunctionFingerprint) []domain.DuplicateCluster {
	var eligible []FunctionFingerprint
	for _, fn := range functions {
		if fn.Statements >= c.opts.MinStatements && len(fn.Tokens) > 0 {
			eligible = append(eligible, fn)
		}
	}
	if len(eligible) < 2 {
		return []domain.DuplicateCluster{}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return refLess(eligible[i].Ref, eligible[j].Ref)
	})

	alphabet := newTokenAlphabet()
	run := &clusterRun{
		threshold: c.opts.Threshold,
		functions: eligible,
		encoded:   make([][]rune, len(eligible)),
		sims:      make(map[[2]int]float64),
	}
	for i, fn := range eligible {
		run.encoded[i] = alphabet.encode(fn.Tokens)
	}

	uf := newUnionFind(len(eligible))
	for _, p := range c.candidatePairs(run) {
		if run.lengthBound(p[0], p[1]) < run.threshold {
			continue
		}
		if run.similarity(p[0], p[1]) >= run.threshold {
			uf.union(p[0], p[1])
		}
	}

	var groups [][]int
	for _, g := range uf.groups() {
		groups = append(groups, run.resolve(g)...)
	}
	return run.buildClusters(groups)
}

// candidatePairs returns index pairs (i < j) worth comparing, in sorted order.
// Small inputs are compared exhaustively; larger ones go through MinHash/LSH.
func (c *MECEClusterer) candidatePairs(run *clusterRun) [][2]int {
	n := len(run.functions)
	var pairs [][2]int
	if n <= c.opts.LSHMinFunctions {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				pairs = append(pairs, [2]int{i, j})
			}
		}
		return pairs
	}

	hasher := NewMinHasher(c.opts.NumHashes)
	index := NewLSHIndex(c.opts.Bands, c.opts.Rows)
	sigs := make([]*MinHashSignature, n)
	for i, fn := range run.functions {
		sigs[i] = hasher.ComputeSignature(Shingles(fn.Tokens, c.opts.ShingleSize))
		_ = index.AddFragment(strconv.Itoa(i), sigs[i])
	}

	seen := make(map[[2]int]bool)
	for i := range run.functions {
		for _, id := range index.FindCandidates(sigs[i]) {
			j, err := strconv.Atoi(id)
			if err != nil || j <= i {
				continue
			}
			key := [2]int{i, j}
			if !seen[key] {
				seen[key] = true
				pairs = append(pairs, key)
			}
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a][0] != pairs[b][0] {
			return pairs[a][0] < pairs[b][0]
		}
		return pairs[a][1] < pairs[b][1]
	})
	return pairs
}

// resolve turns a connected component into clusters that satisfy the
// minimum-similarity threshold. The weakest-linked member is removed until
// the rest qualifies; removed members are clustered again among themselves.
func (r *clusterRun) resolve(members []int) [][]int {
	if len(members) < 2 {
		return nil
	}

	kept := append([]int(nil), members...)
	var removed []int
	for len(kept) >= 2 && r.minSimilarity(kept) < r.threshold {
		w := r.weakest(kept)
		removed = append(removed, kept[w])
		kept = append(kept[:w], kept[w+1:]...)
	}

	var out [][]int
	if len(kept) >= 2 {
		out = append(out, kept)
	}
	if len(removed) >= 2 {
		uf := newUnionFind(len(removed))
		for a := 0; a < len(removed); a++ {
			for b := a + 1; b < len(removed); b++ {
				if r.similarity(removed[a], removed[b]) >= r.threshold {
					uf.union(a, b)
				}
			}
		}
		for _, g := range uf.groups() {
			sub := make([]int, len(g))
			for k, idx := range g {
				sub[k] = removed[idx]
			}
			out = append(out, r.resolve(sub)...)
		}
	}
	return out
}

func (r *clusterRun) minSimilarity(members []int) float64 {
	lowest := 1.0
	for a := 0; a < len(members); a++ {
		for b := a + 1; b < len(members); b++ {
			if s := r.similarity(members[a], members[b]); s < lowest {
				lowest = s
			}
		}
	}
	return lowest
}

// weakest returns the position of the member with the lowest total
// similarity to the others; ties go to the later member
func (r *clusterRun) weakest(members []int) int {
	worst, worstSum := 0, 0.0
	for a := range members {
		sum := 0.0
		for b := range members {
			if a != b {
				sum += r.similarity(members[a], members[b])
			}
		}
		if a == 0 || sum <= worstSum {
			worst, worstSum = a, sum
		}
	}
	return worst
}

func (r *clusterRun) buildClusters(groups [][]int) []domain.DuplicateCluster {
	clusters := make([]domain.DuplicateCluster, 0, len(groups))
	for _, g := range groups {
		sort.Ints(g)
		refs := make([]domain.FunctionRef, len(g))
		for k, idx := range g {
			refs[k] = r.functions[idx].Ref
		}
		clusters = append(clusters, domain.DuplicateCluster{
			Functions:  refs,
			Similarity: r.minSimilarity(g),
		})
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		return refLess(clusters[i].Functions[0], clusters[j].Functions[0])
	})
	for i := range clusters {
		clusters[i].ID = fmt.Sprintf("cluster-%d", i+1)
	}
	return clusters
}

func refLess(a, b domain.FunctionRef) bool {
	if a.FilePath != b.FilePath {
		return a.FilePath < b.FilePath
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Name < b.Name
}

// ClusterViolations expands clusters into one CON_ALGORITHM violation per member
func ClusterViolations(clusters []domain.DuplicateCluster) []domain.Violation {
	var out []domain.Violation
	for _, cl := range clusters {
		for _, fn := range cl.Functions {
			v, err := domain.NewViolation(domain.ViolationInput{
				RuleID:          RuleAlgorithm,
				Severity:        domain.SeverityMedium,
				ConnascenceType: domain.CoAlgorithm,
				Description: fmt.Sprintf("Function '%s' duplicates the algorithm of %d other function(s) in %s (similarity %.2f)",
					fn.Name, cl.Size()-1, cl.ID, cl.Similarity),
				FilePath:       fn.FilePath,
				Line:           fn.Line,
				Recommendation: "Extract the shared algorithm into a single function",
			})
			if err != nil {
				continue
			}
			out = append(out, v)
		}
	}
	return out
}

// unionFind is a disjoint-set forest over 0..n-1
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// groups returns the components with at least two members, each sorted,
// ordered by smallest member
func (u *unionFind) groups() [][]int {
	byRoot := make(map[int][]int)
	for i := range u.parent {
		r := u.find(i)
		byRoot[r] = append(byRoot[r], i)
	}
	var out [][]int
	for _, g := range byRoot {
		if len(g) >= 2 {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
