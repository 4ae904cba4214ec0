package httptransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"docgate/internal/assignment"
	assignmenthandler "docgate/internal/assignment/handler"
	assignmentstore "docgate/internal/assignment/store"
	"docgate/internal/catalog"
	cataloghandler "docgate/internal/catalog/handler"
	catalogstore "docgate/internal/catalog/store"
	"docgate/internal/cases"
	caseshandler "docgate/internal/cases/handler"
	casesstore "docgate/internal/cases/store"
	"docgate/internal/platform/logger"
	"docgate/internal/platform/middleware"
	"docgate/internal/validation"
)

const testSigningKey = "router-test-key"

type RouterSuite struct {
	suite.Suite
	server *httptest.Server
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	log := logger.NewNop()

	docs, products := catalog.Seed()
	rulebook := catalogstore.NewMemory(docs, products)
	catalogSvc := catalog.NewService(rulebook, catalog.WithLogger(log))
	validationSvc := validation.NewService(rulebook, validation.WithLogger(log))

	roster := assignmentstore.NewMemoryWith(
		assignment.Handler{ID: "h1", EmployeeCode: "E001", Name: "Alice", Status: assignment.StatusActive, Position: 1},
		assignment.Handler{ID: "h2", EmployeeCode: "E002", Name: "Bob", Status: assignment.StatusActive, Position: 2},
	)
	assignmentSvc := assignment.NewService(roster, assignment.WithLogger(log))

	casesSvc := cases.NewService(casesstore.NewMemory(), assignmentSvc, validationSvc,
		cases.WithLogger(log))

	router := NewRouter(Deps{
		Logger:    log,
		Validator: middleware.NewTokenValidator(testSigningKey),
		Cases:     caseshandler.New(casesSvc, assignmentSvc, log),
		Roster:    assignmenthandler.New(assignmentSvc, log),
		Catalog:   cataloghandler.New(catalogSvc, log),
	})
	s.server = httptest.NewServer(router)
}

func (s *RouterSuite) TearDownTest() {
	s.server.Close()
}

func (s *RouterSuite) token(subject, name, role string) string {
	claims := middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: name,
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	s.Require().NoError(err)
	return signed
}

func (s *RouterSuite) do(method, path, token string, body any) (*http.Response, map[string]any) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (s *RouterSuite) intakeBody() map[string]any {
	return map[string]any{
		"product_code":   "CC001",
		"applicant_name": "Chang Hsiao-Ming",
		"applicant_id":   "A123456789",
		"documents": []map[string]any{
			{
				"type_code": "ID",
				"pages":     []map[string]any{{"id": "p1", "file_name": "id-front.jpg"}},
				"fields": []map[string]any{
					{"name": "idNumber", "ocr_value": "A123456789"},
					{"name": "name", "ocr_value": "Chang Hsiao-Ming"},
					{"name": "birthDate", "ocr_value": "1990-03-15"},
					{"name": "issueDate", "ocr_value": "2024-05-01"},
				},
			},
			{
				"type_code": "FIN_INCOME",
				"pages":     []map[string]any{{"id": "p2", "file_name": "payslip.jpg"}},
				"fields": []map[string]any{
					{"name": "applicantName", "ocr_value": "Chang Hsiao-Ming"},
					{"name": "monthlyIncome", "ocr_value": "48000"},
					{"name": "payDate", "ocr_value": time.Now().UTC().AddDate(0, 0, -10).Format("2006-01-02")},
				},
			},
		},
	}
}

func (s *RouterSuite) TestHealthAndMetricsAreOpen() {
	resp, body := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("ok", body["status"])

	resp, _ = s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *RouterSuite) TestAuthRequired() {
	resp, body := s.do(http.MethodGet, "/cases", "", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("unauthorized", body["error"])

	resp, _ = s.do(http.MethodGet, "/cases", "not-a-token", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestCapabilityGates() {
	handlerToken := s.token("E001", "Alice", "handler")
	ruleAdminToken := s.token("RA01", "Rule Admin", "rule_admin")

	resp, _ := s.do(http.MethodPost, "/handlers", handlerToken,
		map[string]any{"employee_code": "E009", "name": "Eve"})
	s.Equal(http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(http.MethodPost, "/cases", ruleAdminToken, s.intakeBody())
	s.Equal(http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(http.MethodPut, "/catalog/document-types/ID/rules/r-id-address/enabled",
		ruleAdminToken, map[string]any{"value": true})
	s.Equal(http.StatusNoContent, resp.StatusCode)
}

func (s *RouterSuite) TestReviewFlowEndToEnd() {
	manager := s.token("M001", "Manager", "manager")

	resp, created := s.do(http.MethodPost, "/cases", manager, s.intakeBody())
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	caseID := created["id"].(string)
	s.Equal("pending_review", created["status"])
	s.Equal("E001", created["handler_code"])
	s.Equal(true, created["verdict"].(map[string]any)["valid"])

	docID := created["documents"].([]any)[1].(map[string]any)["id"].(string)
	version := int64(created["version"].(float64))

	resp, flagged := s.do(http.MethodPut,
		fmt.Sprintf("/cases/%s/documents/%s/supplement-flag", caseID, docID), manager,
		map[string]any{"expected_version": version, "flagged": true, "note": "income proof unreadable"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	version = int64(flagged["version"].(float64))

	resp, pending := s.do(http.MethodPost, "/cases/"+caseID+"/supplement", manager,
		map[string]any{"expected_version": version, "note": "please resubmit the income proof"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("pending_supplement", pending["status"])
	version = int64(pending["version"].(float64))

	resp, resubmitted := s.do(http.MethodPost, "/cases/"+caseID+"/resubmit", manager,
		map[string]any{
			"expected_version": version,
			"documents": []map[string]any{{
				"type_code": "FIN_INCOME",
				"pages":     []map[string]any{{"id": "p3", "file_name": "payslip-new.jpg"}},
				"fields": []map[string]any{
					{"name": "applicantName", "ocr_value": "Chang Hsiao-Ming"},
					{"name": "monthlyIncome", "ocr_value": "52000"},
					{"name": "payDate", "ocr_value": time.Now().UTC().AddDate(0, 0, -3).Format("2006-01-02")},
				},
			}},
		})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("pending_review", resubmitted["status"])
	s.Equal("supplement", resubmitted["type"])
	version = int64(resubmitted["version"].(float64))

	resp, submitted := s.do(http.MethodPost, "/cases/"+caseID+"/submit", manager,
		map[string]any{"expected_version": version, "note": "all checks cleared"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("submitted", submitted["status"])

	s.Run("stale version maps to 409", func() {
		resp, body := s.do(http.MethodPost, "/cases/"+caseID+"/reject", manager,
			map[string]any{"expected_version": version, "note": "too late"})
		s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
		s.Equal("invariant_violation", body["error"])
	})

	s.Run("detail carries processing duration", func() {
		resp, body := s.do(http.MethodGet, "/cases/"+caseID, manager, nil)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		s.Contains(body, "processing_seconds")
		s.GreaterOrEqual(body["processing_seconds"].(float64), 0.0)
	})

	s.Run("query sees the case", func() {
		resp, body := s.do(http.MethodGet, "/cases?status=submitted&q=chang", manager, nil)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		s.Equal(float64(1), body["count"])
	})
}

func (s *RouterSuite) TestVersionConflictMapsTo409() {
	manager := s.token("M001", "Manager", "manager")

	resp, created := s.do(http.MethodPost, "/cases", manager, s.intakeBody())
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	caseID := created["id"].(string)
	docID := created["documents"].([]any)[0].(map[string]any)["id"].(string)

	resp, _ = s.do(http.MethodPut,
		fmt.Sprintf("/cases/%s/documents/%s/supplement-flag", caseID, docID), manager,
		map[string]any{"expected_version": 1, "flagged": true, "note": "blurry"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, body := s.do(http.MethodPut,
		fmt.Sprintf("/cases/%s/documents/%s/supplement-flag", caseID, docID), manager,
		map[string]any{"expected_version": 1, "flagged": false})
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("conflict", body["error"])
}

func (s *RouterSuite) TestRosterAdministration() {
	permAdmin := s.token("PA01", "Perm Admin", "permission_admin")

	resp, added := s.do(http.MethodPost, "/handlers", permAdmin,
		map[string]any{"employee_code": "E003", "name": "Carol"})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Equal(float64(3), added["position"])

	resp, moved := s.do(http.MethodPut, "/handlers/E003/position", permAdmin,
		map[string]any{"position": 1})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	handlers := moved["handlers"].([]any)
	s.Equal("E003", handlers[0].(map[string]any)["employee_code"])

	resp, _ = s.do(http.MethodPut, "/handlers/E001/status", permAdmin,
		map[string]any{"active": false})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	s.Run("duplicate employee code maps to 409", func() {
		resp, body := s.do(http.MethodPost, "/handlers", permAdmin,
			map[string]any{"employee_code": "E003", "name": "Copy"})
		s.Equal(http.StatusConflict, resp.StatusCode)
		s.Equal("conflict", body["error"])
	})
}

func (s *RouterSuite) TestUnknownCaseMapsTo404() {
	manager := s.token("M001", "Manager", "manager")
	resp, body := s.do(http.MethodGet, "/cases/not-a-case", manager, nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("not_found", body["error"])
}
