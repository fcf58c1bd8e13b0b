package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	contractapp "github.com/meterbill/backend/internal/application/contract"
	meteringapp "github.com/meterbill/backend/internal/application/metering"
	"github.com/meterbill/backend/internal/domain/contract"
	"github.com/meterbill/backend/internal/domain/metering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readingRequest(month time.Month, bw, color int64) meteringapp.RecordReadingRequest {
	start := time.Date(2026, month, 1, 0, 0, 0, 0, time.UTC)
	return meteringapp.RecordReadingRequest{
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, -1),
		BWA4:        bw,
		ColorA4:     color,
	}
}

func recordReading(t *testing.T, env *testEnv, contractID string, req meteringapp.RecordReadingRequest) meteringapp.RecordReadingResponse {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/v1/contracts/"+contractID+"/readings", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeEnvelope(t, w)
	require.True(t, resp.Success)
	var out meteringapp.RecordReadingResponse
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func TestUsageHandler_RecordReading(t *testing.T) {
	t.Run("records a billing period", func(t *testing.T) {
		env := setupEnv(t)
		active := activateContract(t, env)

		out := recordReading(t, env, active.ID.String(), readingRequest(time.January, 6000, 1300))

		assert.False(t, out.Settled)
		assert.EqualValues(t, 1000, out.Usage.Deltas.BWA4)
		assert.EqualValues(t, 300, out.Usage.Deltas.ColorA4)
		assert.False(t, out.Usage.Final)
	})

	t.Run("rejects a duplicate period", func(t *testing.T) {
		env := setupEnv(t)
		active := activateContract(t, env)

		recordReading(t, env, active.ID.String(), readingRequest(time.January, 6000, 1300))

		w := env.do(t, http.MethodPost, "/api/v1/contracts/"+active.ID.String()+"/readings",
			readingRequest(time.January, 6500, 1400))
		assert.Equal(t, http.StatusConflict, w.Code)

		resp := decodeEnvelope(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "ALREADY_EXISTS", resp.Error.Code)
	})

	t.Run("rejects a period nested inside a billed month", func(t *testing.T) {
		env := setupEnv(t)
		active := activateContract(t, env)

		recordReading(t, env, active.ID.String(), readingRequest(time.January, 6000, 1300))

		// A span inside the already-billed January month would book a
		// second period rent.
		w := env.do(t, http.MethodPost, "/api/v1/contracts/"+active.ID.String()+"/readings",
			meteringapp.RecordReadingRequest{
				PeriodStart: time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
				PeriodEnd:   time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC),
				BWA4:        6500,
				ColorA4:     1400,
			})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeEnvelope(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "INVALID_PERIOD", resp.Error.Code)
	})

	t.Run("rejects a meter rollback", func(t *testing.T) {
		env := setupEnv(t)
		active := activateContract(t, env)

		recordReading(t, env, active.ID.String(), readingRequest(time.January, 6000, 1300))

		w := env.do(t, http.MethodPost, "/api/v1/contracts/"+active.ID.String()+"/readings",
			readingRequest(time.February, 5500, 1200))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects readings on a quotation", func(t *testing.T) {
		env := setupEnv(t)
		created := createContract(t, env)

		w := env.do(t, http.MethodPost, "/api/v1/contracts/"+created.ID.String()+"/readings",
			readingRequest(time.January, 6000, 1300))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("rejects a request without periods", func(t *testing.T) {
		env := setupEnv(t)
		active := activateContract(t, env)

		w := env.do(t, http.MethodPost, "/api/v1/contracts/"+active.ID.String()+"/readings",
			map[string]int64{"bw_a4": 6000})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUsageHandler_History(t *testing.T) {
	env := setupEnv(t)
	active := activateContract(t, env)

	first := recordReading(t, env, active.ID.String(), readingRequest(time.January, 6000, 1300))
	recordReading(t, env, active.ID.String(), readingRequest(time.February, 7200, 1500))

	t.Run("lists usage ordered by period", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/contracts/"+active.ID.String()+"/usage", nil)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decodeEnvelope(t, w)
		var history []meteringapp.UsageResponse
		require.NoError(t, json.Unmarshal(resp.Data, &history))
		require.Len(t, history, 2)
		assert.Equal(t, time.January, history[0].PeriodStart.Month())
		assert.Equal(t, time.February, history[1].PeriodStart.Month())
	})

	t.Run("gets one usage record", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/usage/"+first.Usage.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decodeEnvelope(t, w)
		var usage meteringapp.UsageResponse
		require.NoError(t, json.Unmarshal(resp.Data, &usage))
		assert.Equal(t, first.Usage.ID, usage.ID)
		assert.EqualValues(t, 1000, usage.Deltas.BWA4)
	})

	t.Run("unknown usage record returns 404", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/usage/"+first.Usage.ID.String()[:8], nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = env.do(t, http.MethodGet, "/api/v1/usage/00000000-0000-0000-0000-000000000001", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUsageHandler_Settlement(t *testing.T) {
	t.Run("final reading settles the contract", func(t *testing.T) {
		env := setupEnv(t)
		active := activateContract(t, env)

		recordReading(t, env, active.ID.String(), readingRequest(time.January, 6000, 1300))

		// Period ending on effective-to closes the contract
		final := meteringapp.RecordReadingRequest{
			PeriodStart: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			PeriodEnd:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
			BWA4:        9000,
			ColorA4:     2000,
		}
		out := recordReading(t, env, active.ID.String(), final)

		require.True(t, out.Settled)
		require.NotNil(t, out.Settlement)
		assert.True(t, out.Usage.Final)
		assert.True(t, out.Settlement.NetTotal.LessThanOrEqual(out.Settlement.GrossTotal))

		w := env.do(t, http.MethodGet, "/api/v1/contracts/"+active.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, contract.StatusCompleted, decodeContract(t, w).Status)

		// Allocated units come back with the final reading
		w = env.do(t, http.MethodGet, "/api/v1/contracts/"+active.ID.String()+"/allocations", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeEnvelope(t, w)
		var allocations []contractapp.AllocationResponse
		require.NoError(t, json.Unmarshal(resp.Data, &allocations))
		require.Len(t, allocations, 1)
		assert.Equal(t, "RETURNED", allocations[0].Status)
	})

	t.Run("settlement of a settled contract is readable", func(t *testing.T) {
		env := setupEnv(t)
		active := activateContract(t, env)

		final := meteringapp.RecordReadingRequest{
			PeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			PeriodEnd:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
			BWA4:        9000,
			ColorA4:     2000,
		}
		out := recordReading(t, env, active.ID.String(), final)
		require.True(t, out.Settled)

		w := env.do(t, http.MethodGet, "/api/v1/contracts/"+active.ID.String()+"/settlement", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decodeEnvelope(t, w)
		var settled metering.Settlement
		require.NoError(t, json.Unmarshal(resp.Data, &settled))
		assert.True(t, settled.GrossTotal.Equal(out.Settlement.GrossTotal))
	})

	t.Run("settlement of an active contract conflicts", func(t *testing.T) {
		env := setupEnv(t)
		active := activateContract(t, env)

		w := env.do(t, http.MethodGet, "/api/v1/contracts/"+active.ID.String()+"/settlement", nil)
		assert.Equal(t, http.StatusConflict, w.Code)

		resp := decodeEnvelope(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "STATE_CONFLICT", resp.Error.Code)
	})
}
