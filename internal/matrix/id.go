package matrix

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// caseIDLen is the number of hex characters kept from the digest.
const caseIDLen = 10

// CaseID derives the stable short identifier for a case from its
// identity tuple. Identical tuples always produce identical ids.
func CaseID(benchmarkName, featureName, features string) string {
	seed := fmt.Sprintf("%s|%s|%s", benchmarkName, featureName, features)
	sum := sha1.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])[:caseIDLen]
}
