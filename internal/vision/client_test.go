package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDetectFaces(t *testing.T) {
	var gotPath string
	var gotImage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotImage = body["image"]
		json.NewEncoder(w).Encode(map[string]interface{}{
			"faces": []Region{{X: 10, Y: 20, W: 30, H: 40}},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	regions, err := client.DetectFaces(context.Background(), []byte("frame-bytes"))
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, Region{X: 10, Y: 20, W: 30, H: 40}, regions[0])
	assert.Equal(t, "/detect/faces", gotPath)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("frame-bytes")), gotImage)
}

func TestClientDetectCounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/detect/smiles":
			json.NewEncoder(w).Encode(map[string]int{"count": 1})
		case "/detect/eyes":
			json.NewEncoder(w).Encode(map[string]int{"count": 2})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	smiles, err := client.DetectSmiles(context.Background(), []byte("face"))
	require.NoError(t, err)
	assert.Equal(t, 1, smiles)

	eyes, err := client.DetectEyes(context.Background(), []byte("face"))
	require.NoError(t, err)
	assert.Equal(t, 2, eyes)
}

func TestClientTrain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Samples []struct {
				Label int64  `json:"label"`
				Image string `json:"image"`
			} `json:"samples"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Samples, 2)
		assert.Equal(t, int64(1), body.Samples[0].Label)
		json.NewEncoder(w).Encode(map[string]string{
			"model": base64.StdEncoding.EncodeToString([]byte("trained-model")),
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	model, err := client.Train(context.Background(), []LabeledSample{
		{Label: 1, Image: []byte("a")},
		{Label: 2, Image: []byte("b")},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("trained-model"), model)
}

func TestClientTrainRequiresSamples(t *testing.T) {
	client := NewClient("http://unused", time.Second)
	_, err := client.Train(context.Background(), nil)
	require.Error(t, err)
}

func TestClientPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Prediction{Label: 7, Distance: 42.5})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	pred, err := client.Predict(context.Background(), []byte("model"), []byte("face"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), pred.Label)
	assert.InDelta(t, 42.5, pred.Distance, 0.001)
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cascade failure", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.DetectFaces(context.Background(), []byte("frame"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "face service error")
}

func TestClientHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	require.NoError(t, client.Health(context.Background()))
}
