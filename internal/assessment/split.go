package assessment

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrInsufficientData means the dataset cannot yield two non-empty partitions.
var ErrInsufficientData = errors.New("insufficient data")

// Split shuffles the dataset with the given seed and divides it into a
// training partition and a holdout partition. Deterministic: the same
// dataset, ratio, and seed always produce identical partitions. The split is
// computed once per run; the holdout partition must reach only the final
// generalization gate.
func Split(ds Dataset, ratio float64, seed int64) (train, holdout Dataset, err error) {
	if len(ds) < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2 cases, have %d", ErrInsufficientData, len(ds))
	}
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, fmt.Errorf("train ratio must be in (0, 1), got %v", ratio)
	}

	shuffled := make(Dataset, len(ds))
	copy(shuffled, ds)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	cut := int(float64(len(shuffled)) * ratio)
	if cut == 0 || cut == len(shuffled) {
		return nil, nil, fmt.Errorf("%w: ratio %v leaves an empty partition for %d cases", ErrInsufficientData, ratio, len(ds))
	}
	return shuffled[:cut], shuffled[cut:], nil
}
