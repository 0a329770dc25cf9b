package acceptance

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/anacarla/crm-api/controllers"
	"github.com/anacarla/crm-api/middleware"
	"github.com/anacarla/crm-api/repositories"
	"github.com/anacarla/crm-api/services"
	"github.com/anacarla/crm-api/telemetry"
	"github.com/anacarla/crm-api/tests/testutil"
)

// AttachmentAcceptanceTestSuite exercises interaction attachments stored on
// the local disk, end to end over HTTP.
type AttachmentAcceptanceTestSuite struct {
	suite.Suite
	server    *httptest.Server
	uploadDir string
}

// SetupTest starts a server backed by a fresh database and upload directory
func (suite *AttachmentAcceptanceTestSuite) SetupTest() {
	testutil.RequireTestEnvironment(suite.T())
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(suite.T())
	logger, _ := testutil.NewTestLogger()
	metrics := telemetry.NewRegistry()
	suite.uploadDir = suite.T().TempDir()

	customerRepo := repositories.NewCustomerRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	menuRepo := repositories.NewMenuRepository(db)
	tx := repositories.NewTransactor(db)
	locker := services.NewLocalLocker()
	recalc := services.NewMetricsRecalculator(orderRepo, customerRepo, tx, locker, metrics, logger)
	churn := services.NewChurnAlertJob(customerRepo, taskRepo, locker, services.ChurnSettings{Enabled: true, BufferDays: 15}, metrics, logger)

	h := &controllers.Controllers{
		Customers:    controllers.NewCustomerController(services.NewCustomerService(customerRepo, orderRepo, tx, "BR", logger), recalc),
		Orders:       controllers.NewOrderController(services.NewOrderService(orderRepo, customerRepo, menuRepo, recalc, tx, logger)),
		Tasks:        controllers.NewTaskController(services.NewTaskService(taskRepo, customerRepo, logger)),
		Interactions: controllers.NewInteractionController(services.NewInteractionService(repositories.NewInteractionRepository(db), customerRepo, services.NewLocalStorage(suite.uploadDir), logger)),
		Menu:         controllers.NewMenuController(services.NewMenuService(menuRepo, services.NewMemoryCache(), time.Minute, metrics, logger)),
		Admin:        controllers.NewAdminController(churn, nil),
		Uploads:      controllers.NewUploadController(suite.uploadDir),
	}

	router := gin.New()
	api := router.Group("/api/v1", testutil.MockAuth("auth0|attendant", middleware.RoleAttendant))
	h.Register(api)
	suite.server = httptest.NewServer(router)
}

// TearDownTest stops the server
func (suite *AttachmentAcceptanceTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *AttachmentAcceptanceTestSuite) postJSON(path string, body any) map[string]any {
	raw, err := json.Marshal(body)
	suite.Require().NoError(err)

	resp, err := http.Post(suite.server.URL+path, "application/json", bytes.NewReader(raw))
	suite.Require().NoError(err)
	defer resp.Body.Close()
	suite.Require().Equal(http.StatusCreated, resp.StatusCode)

	var envelope struct {
		Data map[string]any `json:"data"`
	}
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Data
}

func (suite *AttachmentAcceptanceTestSuite) upload(path, filename string, content []byte) (*http.Response, map[string]any) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	suite.Require().NoError(err)
	_, err = part.Write(content)
	suite.Require().NoError(err)
	suite.Require().NoError(writer.Close())

	resp, err := http.Post(suite.server.URL+path, writer.FormDataContentType(), body)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	var decoded map[string]any
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (suite *AttachmentAcceptanceTestSuite) newInteraction() string {
	customer := suite.postJSON("/api/v1/customers", map[string]any{"name": "Maria"})
	interaction := suite.postJSON("/api/v1/customers/"+customer["id"].(string)+"/interactions", map[string]any{
		"type":    "email",
		"summary": "Sent the weekly menu",
	})
	return interaction["id"].(string)
}

// TestUploadAndDownloadAttachment tests the complete upload and retrieval workflow
func (suite *AttachmentAcceptanceTestSuite) TestUploadAndDownloadAttachment() {
	id := suite.newInteraction()
	content := []byte("%PDF-1.4 weekly menu")

	resp, body := suite.upload("/api/v1/interactions/"+id+"/attachment", "menu.pdf", content)
	suite.Require().Equal(http.StatusOK, resp.StatusCode, body)
	data := body["data"].(map[string]any)
	url := data["attachment_url"].(string)
	suite.True(strings.HasPrefix(url, "/api/v1/uploads/"))

	// the file landed in the upload directory
	key := data["attachment_key"].(string)
	_, err := os.Stat(filepath.Join(suite.uploadDir, key))
	suite.NoError(err)

	download, err := http.Get(suite.server.URL + url)
	suite.Require().NoError(err)
	defer download.Body.Close()
	suite.Equal(http.StatusOK, download.StatusCode)
	suite.Equal("application/pdf", download.Header.Get("Content-Type"))
	got, err := io.ReadAll(download.Body)
	suite.Require().NoError(err)
	suite.Equal(content, got)
}

// TestReplacingAttachmentRemovesOldFile tests that only the latest file is kept
func (suite *AttachmentAcceptanceTestSuite) TestReplacingAttachmentRemovesOldFile() {
	id := suite.newInteraction()
	path := "/api/v1/interactions/" + id + "/attachment"

	_, first := suite.upload(path, "a.png", []byte("first"))
	firstKey := first["data"].(map[string]any)["attachment_key"].(string)
	_, second := suite.upload(path, "b.jpg", []byte("second"))
	secondKey := second["data"].(map[string]any)["attachment_key"].(string)

	suite.NotEqual(firstKey, secondKey)
	_, err := os.Stat(filepath.Join(suite.uploadDir, firstKey))
	suite.True(os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(suite.uploadDir, secondKey))
	suite.NoError(err)
}

// TestRejectsUnsupportedFormat tests that only images and PDFs are accepted
func (suite *AttachmentAcceptanceTestSuite) TestRejectsUnsupportedFormat() {
	id := suite.newInteraction()

	resp, body := suite.upload("/api/v1/interactions/"+id+"/attachment", "virus.exe", []byte("MZ"))
	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	apiErr := body["error"].(map[string]any)
	suite.Equal("VALIDATION_ERROR", apiErr["code"])
	suite.Equal("INVALID_FILE_FORMAT", apiErr["details"].(map[string]any)["file"])

	entries, err := os.ReadDir(suite.uploadDir)
	suite.Require().NoError(err)
	suite.Empty(entries)
}

func TestAttachmentAcceptanceTestSuite(t *testing.T) {
	suite.Run(t, new(AttachmentAcceptanceTestSuite))
}
