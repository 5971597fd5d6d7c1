package forecast

import (
	"fmt"

	"StockCast/internal/domain/models"
)

// Dataset holds aligned feature/target columns. X is the adjusted close
// and Y is the open of the same bar.
type Dataset struct {
	X []float64
	Y []float64
}

// ToDataset maps quotes, in order, to training pairs.
func ToDataset(quotes []models.Quote) Dataset {
	ds := Dataset{
		X: make([]float64, len(quotes)),
		Y: make([]float64, len(quotes)),
	}
	for i, q := range quotes {
		ds.X[i] = q.AdjClose
		ds.Y[i] = q.Open
	}
	return ds
}

func (d Dataset) Len() int {
	return len(d.X)
}

// Split cuts the dataset in order: the first ratio share trains, the rest
// tests. Both halves must be non-empty.
func (d Dataset) Split(ratio float64) (Dataset, Dataset, error) {
	if ratio <= 0 || ratio >= 1 {
		return Dataset{}, Dataset{}, fmt.Errorf("split ratio must be in (0, 1), got %v", ratio)
	}
	n := d.Len()
	k := int(float64(n) * ratio)
	if k < 1 || k >= n {
		return Dataset{}, Dataset{}, fmt.Errorf("%w: %d samples cannot be split at %v", models.ErrInsufficientData, n, ratio)
	}
	train := Dataset{X: d.X[:k], Y: d.Y[:k]}
	test := Dataset{X: d.X[k:], Y: d.Y[k:]}
	return train, test, nil
}
