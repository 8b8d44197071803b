package builder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"pygr/internal/buildtype"
	"pygr/internal/sandbox"
	"pygr/internal/store"
)

// buildFingerprint computes the store key for one build: a digest
// over the source-tree fingerprint, the canonical recipe/detected
// build descriptor, the sorted dependency store keys, the prefix
// template, and a sandbox policy marker.
func buildFingerprint(sourceTreeFingerprint [32]byte, descriptor buildtype.Descriptor, deps []store.Key, prefixTemplate string, policy sandbox.Policy) store.Key {
	sortedDeps := make([]string, len(deps))
	for i, d := range deps {
		sortedDeps[i] = string(d)
	}
	sort.Strings(sortedDeps)

	h := blake3.New()
	fmt.Fprintf(h, "source-tree:%x\n", sourceTreeFingerprint)
	fmt.Fprintf(h, "descriptor:%s\n", descriptor.Text())
	fmt.Fprintf(h, "deps:%s\n", strings.Join(sortedDeps, ","))
	fmt.Fprintf(h, "prefix-template:%s\n", prefixTemplate)
	fmt.Fprintf(h, "sandbox-policy:network=%v\n", policy.NetworkOn)

	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return store.KeyFromDigest(digest)
}
