package validation

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/creditofacil/internal/api"
)

// CollateralKind is the backend's garantia.tipo.
type CollateralKind string

const (
	CollateralCar   CollateralKind = "carro"
	CollateralHouse CollateralKind = "casa"
	CollateralOther CollateralKind = "outros"
)

// CollateralKinds lists the kinds in the order the form offers them.
var CollateralKinds = []CollateralKind{CollateralCar, CollateralHouse, CollateralOther}

var collateralLabels = map[CollateralKind]string{
	CollateralCar:   "Carro",
	CollateralHouse: "Casa/Imóvel",
	CollateralOther: "Outros Bens",
}

func (k CollateralKind) Label() string {
	if l, ok := collateralLabels[k]; ok {
		return l
	}
	return string(k)
}

const maxKindDistance = 2

// ResolveCollateralKind maps free text typed by the user to a kind. Keys and
// labels match case-insensitively; anything within a small edit distance of
// one of them is accepted too.
func ResolveCollateralKind(input string) (CollateralKind, bool) {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return "", false
	}
	best := CollateralKind("")
	bestDist := maxKindDistance + 1
	for _, k := range CollateralKinds {
		for _, candidate := range []string{string(k), strings.ToLower(k.Label())} {
			if candidate == needle {
				return k, true
			}
			if d := levenshtein.ComputeDistance(needle, candidate); d < bestDist {
				best, bestDist = k, d
			}
		}
	}
	if bestDist > maxKindDistance {
		return "", false
	}
	return best, true
}

// CanAddCollateral reports whether an entry is complete enough to be added
// to the form: a kind and a description are both needed.
func CanAddCollateral(c api.Collateral) bool {
	return strings.TrimSpace(c.Kind) != "" && strings.TrimSpace(c.Description) != ""
}
