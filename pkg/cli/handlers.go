package cli

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ieco-lab/scarifSDM/pkg/data"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requireDataset(w http.ResponseWriter, r *http.Request) (string, bool) {
	dataset := r.URL.Query().Get("dataset")
	if dataset == "" {
		writeError(w, http.StatusBadRequest, "dataset query parameter is required")
		return "", false
	}
	return dataset, true
}

func stateAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := data.GetDataState(db)
		if err != nil {
			slog.Error("failed to get data state", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get data state")
			return
		}

		imports, err := data.ListImports(db, importLogLimitDefault)
		if err != nil {
			slog.Error("failed to list imports", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list imports")
			return
		}

		writeJSON(w, http.StatusOK, &StateResult{Counts: counts, Imports: imports})
	}
}

func thresholdsAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := data.ListThresholds(db)
		if err != nil {
			slog.Error("failed to list thresholds", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list thresholds")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func samplesAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataset, ok := requireDataset(w, r)
		if !ok {
			return
		}

		list, err := data.GetSamples(db, dataset)
		if err != nil {
			slog.Error("failed to get samples", "dataset", dataset, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get samples")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func categoriesAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataset, ok := requireDataset(w, r)
		if !ok {
			return
		}

		list, err := data.GetCategoryCounts(db, dataset)
		if err != nil {
			slog.Error("failed to get category counts", "dataset", dataset, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get category counts")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func riskAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataset, ok := requireDataset(w, r)
		if !ok {
			return
		}

		list, err := data.GetRiskRows(db, dataset)
		if err != nil {
			slog.Error("failed to get risk rows", "dataset", dataset, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get risk rows")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func crossingsAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataset, ok := requireDataset(w, r)
		if !ok {
			return
		}

		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")
		if from == "" || to == "" {
			writeError(w, http.StatusBadRequest, "from and to query parameters are required")
			return
		}

		res, err := queryCrossings(db, dataset, from, to)
		if err != nil {
			slog.Error("failed to get risk pairs", "dataset", dataset, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get risk pairs")
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}
