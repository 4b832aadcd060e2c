// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package payments

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/moov-io/base"
	"github.com/moov-io/sepagate/pkg/database"
	"github.com/moov-io/sepagate/pkg/model"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	w.Flush()
	return w
}

func TestRouter(t *testing.T) {
	db := database.CreateTestSqliteDB(t)
	defer db.Close()

	f := setupFixture(t, db.DB)
	a := f.payment(t, model.Payable, "12.00")
	b := f.payment(t, model.Receivable, "3.00")

	router := mux.NewRouter()
	NewRouter(log.NewNopLogger(), f.repo, f.processor(nil)).RegisterRoutes(router)

	w := serve(t, router, "POST", "/payments/process", map[string]interface{}{
		"payments": ids(a, b),
		"dryRun":   true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(t, router, "POST", "/payments/process", map[string]interface{}{
		"payments": ids(a, b),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var group model.Group
	require.NoError(t, json.NewDecoder(w.Body).Decode(&group))
	require.Len(t, group.Messages, 2)
	require.Empty(t, group.Messages[0].Document)

	w = serve(t, router, "GET", fmt.Sprintf("/groups/%s", group.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var found model.Group
	require.NoError(t, json.NewDecoder(w.Body).Decode(&found))
	require.Equal(t, group.ID, found.ID)
	require.Len(t, found.Messages, 2)

	w = serve(t, router, "GET", fmt.Sprintf("/messages/%s", group.Messages[1].ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/xml"))
	require.Contains(t, w.Body.String(), "urn:iso:std:iso:20022:tech:xsd:pain.008.001.02")

	// already claimed
	w = serve(t, router, "POST", "/payments/process", map[string]interface{}{
		"payments": ids(a),
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), a.ID.String())
}

func TestRouter__NotFound(t *testing.T) {
	db := database.CreateTestSqliteDB(t)
	defer db.Close()

	f := setupFixture(t, db.DB)
	router := mux.NewRouter()
	NewRouter(log.NewNopLogger(), f.repo, f.processor(nil)).RegisterRoutes(router)

	w := serve(t, router, "GET", fmt.Sprintf("/groups/%s", base.ID()), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, router, "GET", fmt.Sprintf("/messages/%s", base.ID()), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, router, "POST", "/payments/process", "{")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusOf(t *testing.T) {
	require.Equal(t, http.StatusConflict, statusOf(fmt.Errorf("x: %w", model.ErrDuplicateIdentification)))
	require.Equal(t, http.StatusUnprocessableEntity, statusOf(fmt.Errorf("x: %w", model.ErrSchema)))
	require.Equal(t, http.StatusBadRequest, statusOf(fmt.Errorf("x: %w", model.ErrEligibility)))
	require.Equal(t, http.StatusBadRequest, statusOf(fmt.Errorf("x: %w", model.ErrConfiguration)))
	require.Equal(t, http.StatusInternalServerError, statusOf(errors.New("boom")))
}
