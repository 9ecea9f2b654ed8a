package routing

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"pizza-dispatch-service/internal/domain"
	"pizza-dispatch-service/internal/platform/obs"
	"pizza-dispatch-service/internal/ports"
)

type matrixRequest struct {
	Locations [][]float64 `json:"locations"`
	Metrics   []string    `json:"metrics"`
	Units     string      `json:"units,omitempty"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// DistanceMatrix returns the full pairwise travel matrix between the
// given coordinates in the configured metric's unit, using the ORS
// matrix endpoint. Results are cached under a digest of the request.
func (o *ORSRoutePlanner) DistanceMatrix(
	ctx context.Context,
	coords []domain.Coordinates,
) (_ [][]float64, err error) {
	defer obs.Time(ctx, "ors.DistanceMatrix")(&err)

	n := len(coords)
	if n == 0 {
		return [][]float64{}, nil
	}

	locations := make([][]float64, 0, n)
	for _, c := range coords {
		locations = append(locations, c.CoordsToList())
	}

	key := o.matrixKey(locations)
	if o.matrixCache != nil {
		cached, err := o.matrixCache.GetMatrix(ctx, key)
		if err != nil {
			log.Printf("matrix cache read failed: %v", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)

	payload, err := json.Marshal(matrixRequest{
		Locations: locations,
		Metrics:   []string{o.metric},
		Units:     o.units,
	})
	if err != nil {
		return nil, providerErr("matrix", fmt.Errorf("marshal request: %w", err))
	}

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, providerErr("matrix", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, providerErr("matrix", fmt.Errorf("decode response: %w", err))
	}

	rows := mr.Durations
	if o.metric == ports.MetricDistance {
		rows = mr.Distances
	}
	if len(rows) != n {
		return nil, providerErr("matrix", fmt.Errorf("expected %d rows, got %d", n, len(rows)))
	}

	out := make([][]float64, n)
	for i, row := range rows {
		if len(row) != n {
			return nil, providerErr("matrix", fmt.Errorf("row %d: expected %d columns, got %d", i, n, len(row)))
		}
		out[i] = make([]float64, n)
		for j, v := range row {
			if v == nil {
				return nil, providerErr("matrix", fmt.Errorf("unreachable pair (%d, %d)", i, j))
			}
			out[i][j] = *v
		}
	}

	if o.matrixCache != nil {
		if err := o.matrixCache.PutMatrix(ctx, key, out); err != nil {
			log.Printf("matrix cache write failed: %v", err)
		}
	}

	return out, nil
}

func (o *ORSRoutePlanner) matrixKey(locations [][]float64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|", o.profile, o.metric, o.units)
	for _, loc := range locations {
		fmt.Fprintf(h, "%.6f,%.6f;", loc[0], loc[1])
	}
	return "matrix:" + hex.EncodeToString(h.Sum(nil))
}
