package server

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jobsnprofiles/synccheck/internal/history"
	"github.com/jobsnprofiles/synccheck/internal/model"
	"github.com/jobsnprofiles/synccheck/internal/report"
)

type testHealth struct {
	TestName string           `json:"test_name"`
	Status   model.TestStatus `json:"status"`
	Datetime string           `json:"datetime"`
}

type moduleHealth struct {
	Module string           `json:"module"`
	Status model.TestStatus `json:"status"`
	Tests  []testHealth     `json:"tests"`
}

type healthResponse struct {
	Status  string         `json:"status"`
	Modules []moduleHealth `json:"modules"`
}

// handleHealth handles GET /api/health. A module is FAIL when the latest
// entry of any of its test cases is FAIL; overall status is degraded when
// any module is FAIL.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names, err := history.ListModules(s.cfg.HistoryDir)
	if err != nil {
		s.log.Error("list modules", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "listing modules failed")
		return
	}

	resp := healthResponse{Status: "ok", Modules: []moduleHealth{}}
	for _, name := range names {
		hist, err := history.LoadFile(filepath.Join(s.cfg.HistoryDir, name+history.FileSuffix))
		if err != nil {
			s.log.Error("load history", zap.String("module", name), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "reading history failed")
			return
		}

		mod := moduleHealth{Module: name, Status: model.StatusPass, Tests: []testHealth{}}
		for test, entries := range hist {
			if len(entries) == 0 {
				continue
			}
			latest := entries[0]
			mod.Tests = append(mod.Tests, testHealth{
				TestName: test,
				Status:   latest.Status,
				Datetime: latest.Datetime,
			})
			if latest.Status == model.StatusFail {
				mod.Status = model.StatusFail
			}
		}
		sort.Slice(mod.Tests, func(i, j int) bool {
			return mod.Tests[i].TestName < mod.Tests[j].TestName
		})

		if mod.Status == model.StatusFail {
			resp.Status = "degraded"
		}
		resp.Modules = append(resp.Modules, mod)
	}

	s.respond(w, http.StatusOK, resp)
}

// handleTestHistory handles GET /api/modules/{module}/test-cases/{test}/history
// as a read-through of the module's history file.
func (s *Server) handleTestHistory(w http.ResponseWriter, r *http.Request) {
	module := chi.URLParam(r, "module")
	test := chi.URLParam(r, "test")
	if !validName(module) || !validName(test) {
		s.respondError(w, http.StatusBadRequest, "invalid name")
		return
	}

	path := filepath.Join(s.cfg.HistoryDir, module+history.FileSuffix)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		s.respondError(w, http.StatusNotFound, "module not found")
		return
	}

	hist, err := history.LoadFile(path)
	if err != nil {
		s.log.Error("load history", zap.String("module", module), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "reading history failed")
		return
	}

	entries, ok := hist[test]
	if !ok {
		s.respondError(w, http.StatusNotFound, "test case not found")
		return
	}

	s.respond(w, http.StatusOK, entries)
}

// handleReport handles GET /api/modules/{module}/report, serving the
// module's current failure report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	module := chi.URLParam(r, "module")
	if !validName(module) {
		s.respondError(w, http.StatusBadRequest, "invalid name")
		return
	}

	path := filepath.Join(s.cfg.ReportDir, module+report.FileSuffix)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		s.respondError(w, http.StatusNotFound, "report not found")
		return
	}

	rep, err := report.Read(path)
	if err != nil {
		s.log.Error("read report", zap.String("module", module), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "reading report failed")
		return
	}

	s.respond(w, http.StatusOK, rep)
}

// validName rejects empty and path-escaping names taken from the URL.
func validName(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
