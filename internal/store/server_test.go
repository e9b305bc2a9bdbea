package store

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/billed/internal/bill"
)

func multipartUpload(filename, email string, data []byte) (*bytes.Buffer, string) {
	var b bytes.Buffer
	writer := multipart.NewWriter(&b)
	if filename != "" {
		part, _ := writer.CreateFormFile("file", filename)
		part.Write(data)
	}
	if email != "" {
		writer.WriteField("email", email)
	}
	writer.Close()
	return &b, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		auth        BasicAuth
		server      *Server
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		service := NewServiceWithDeps(db, storage, "http://store.test", &mockIDGenerator{id: "test-id"}, defaultTimeSource{})
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	Describe("handleListBills", func() {
		When("bills exist", func() {
			BeforeEach(func() {
				db.SaveBill(&bill.Bill{ID: "id1", Email: "a@test.tld", Name: "Test 1"})
				db.SaveBill(&bill.Bill{ID: "id2", Email: "b@test.tld", Name: "Test 2"})
			})

			It("should return all bills as JSON", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var bills []bill.Bill
				Expect(json.NewDecoder(resp.Body).Decode(&bills)).To(Succeed())
				Expect(bills).To(HaveLen(2))
			})

			It("should filter by email", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills?email=b@test.tld")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()

				var bills []bill.Bill
				Expect(json.NewDecoder(resp.Body).Decode(&bills)).To(Succeed())
				Expect(bills).To(HaveLen(1))
				Expect(bills[0].Name).To(Equal("Test 2"))
			})
		})

		When("no bills exist", func() {
			It("should return an empty array", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, _ := io.ReadAll(resp.Body)
				Expect(strings.TrimSpace(string(body))).To(Equal("[]"))
			})
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.listErr = io.ErrUnexpectedEOF
			})

			It("should return Internal Server Error", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				body, _ := io.ReadAll(resp.Body)
				Expect(string(body)).To(ContainSubstring("Internal server error"))
			})
		})
	})

	Describe("handleCreateBill", func() {
		When("upload succeeds", func() {
			It("should return Created with key and file URL", func() {
				body, ct := multipartUpload("billet.png", "employee@test.tld", []byte("fake image data"))
				resp, err := http.Post(ghttpServer.URL()+"/api/bills", ct, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var created bill.Created
				Expect(json.NewDecoder(resp.Body).Decode(&created)).To(Succeed())
				Expect(created.Key).To(Equal("test-id"))
				Expect(created.FileURL).To(Equal("http://store.test/api/bills/test-id/file"))
				Expect(db.receipts["test-id"].Email).To(Equal("employee@test.tld"))
			})
		})

		When("no file is provided", func() {
			It("should return Bad Request", func() {
				body, ct := multipartUpload("", "employee@test.tld", nil)
				resp, err := http.Post(ghttpServer.URL()+"/api/bills", ct, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var payload map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&payload)).To(Succeed())
				Expect(payload["error"]).To(ContainSubstring("No file"))
			})
		})

		When("the form is not multipart", func() {
			It("should return Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/bills", "multipart/form-data", bytes.NewBufferString("invalid"))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				body, _ := io.ReadAll(resp.Body)
				Expect(string(body)).To(ContainSubstring("Error parsing form"))
			})
		})

		When("storage fails", func() {
			BeforeEach(func() {
				storage.saveErr = io.ErrShortWrite
			})

			It("should return Internal Server Error", func() {
				body, ct := multipartUpload("billet.png", "employee@test.tld", []byte("data"))
				resp, err := http.Post(ghttpServer.URL()+"/api/bills", ct, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("handleUpdateBill", func() {
		patch := func(path, body string) *http.Response {
			req, err := http.NewRequest(http.MethodPatch, ghttpServer.URL()+path, strings.NewReader(body))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		When("the payload is valid", func() {
			BeforeEach(func() {
				db.receipts["test-id"] = &Receipt{ID: "test-id", FileName: "billet.png", FileURL: "http://store.test/api/bills/test-id/file"}
			})

			It("should save the bill and return it", func() {
				resp := patch("/api/bills/test-id", `{"type":"Transports","name":"Billet","date":"2023-04-25","amount":250,"pct":25,"status":"pending"}`)
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var saved bill.Bill
				Expect(json.NewDecoder(resp.Body).Decode(&saved)).To(Succeed())
				Expect(saved.ID).To(Equal("test-id"))
				Expect(saved.FileName).To(Equal("billet.png"))
				Expect(db.bills).To(HaveKey("test-id"))
				Expect(db.bills["test-id"].Amount.IntPart()).To(Equal(int64(250)))
			})

			It("should answer the amount as a JSON number", func() {
				resp := patch("/api/bills/test-id", `{"type":"Transports","name":"Billet","date":"2023-04-25","amount":"250","pct":25}`)
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(ContainSubstring(`"amount":250`))
				Expect(string(body)).NotTo(ContainSubstring(`"amount":"250"`))
			})
		})

		When("the body is not JSON", func() {
			It("should return Bad Request", func() {
				resp := patch("/api/bills/test-id", "not json")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the status is unknown", func() {
			It("should return Bad Request", func() {
				resp := patch("/api/bills/test-id", `{"status":"archived"}`)
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleGetBill", func() {
		When("the bill exists", func() {
			BeforeEach(func() {
				db.SaveBill(&bill.Bill{ID: "test-id", Name: "Test"})
			})

			It("should return the bill", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills/test-id")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var got bill.Bill
				Expect(json.NewDecoder(resp.Body).Decode(&got)).To(Succeed())
				Expect(got.Name).To(Equal("Test"))
			})
		})

		When("the bill does not exist", func() {
			It("should return Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills/nonexistent")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				body, _ := io.ReadAll(resp.Body)
				Expect(string(body)).To(ContainSubstring("Bill not found"))
			})
		})
	})

	Describe("handleGetFile", func() {
		When("the receipt exists", func() {
			BeforeEach(func() {
				db.receipts["test-id"] = &Receipt{ID: "test-id", Path: "test-id_billet.png", ContentType: "image/png"}
				storage.files["test-id_billet.png"] = []byte("file content")
			})

			It("should serve the file with its content type", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills/test-id/file")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
				body, _ := io.ReadAll(resp.Body)
				Expect(string(body)).To(Equal("file content"))
			})
		})

		When("the receipt does not exist", func() {
			It("should return Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills/nonexistent/file")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			req, _ := http.NewRequest(http.MethodOptions, ghttpServer.URL()+"/api/bills", nil)
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		It("should reject requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/bills")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Billed"))
		})

		It("should accept valid credentials", func() {
			req, _ := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/bills", nil)
			req.SetBasicAuth("admin", "secret")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})
})
