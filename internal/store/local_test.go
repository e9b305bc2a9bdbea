package store

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/billed/internal/bill"
)

var _ = Describe("Local", func() {
	var (
		db    *BoltDB
		local *Local
		ctx   context.Context
	)

	BeforeEach(func() {
		tmpDir := GinkgoT().TempDir()
		var err error
		db, err = NewBoltDB(filepath.Join(tmpDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())
		storage, err := NewLocalStorage(filepath.Join(tmpDir, "receipts"))
		Expect(err).NotTo(HaveOccurred())
		local = NewLocal(NewService(db, storage, "http://localhost:8080"))
		ctx = context.Background()
	})

	AfterEach(func() {
		db.Close()
	})

	It("should create, update and list a user's bills", func() {
		bills := local.ForUser("employee@test.tld").Collection(bill.CollectionName)

		created, err := bills.Create(ctx, bill.Upload{FileName: "billet.png", Data: []byte("png"), Email: "employee@test.tld"})
		Expect(err).NotTo(HaveOccurred())
		Expect(created.Key).NotTo(BeEmpty())
		Expect(created.FileURL).To(HavePrefix("http://localhost:8080/api/bills/"))

		_, err = bills.Update(ctx, created.Key, bill.Bill{Email: "employee@test.tld", Name: "Billet", Date: "2023-04-25"})
		Expect(err).NotTo(HaveOccurred())

		listed, err := bills.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(listed).To(HaveLen(1))
		Expect(listed[0].FileName).To(Equal("billet.png"))
		Expect(listed[0].Status).To(Equal(bill.StatusPending))

		others, err := local.ForUser("someone@test.tld").Collection(bill.CollectionName).List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(others).To(BeEmpty())
	})

	It("should map invalid uploads to a 400 RemoteError", func() {
		_, err := local.Collection(bill.CollectionName).Create(ctx, bill.Upload{FileName: "empty.png"})
		Expect(err).To(MatchError(&bill.RemoteError{Code: 400, Message: "empty file: invalid payload"}))
	})

	It("should fail unknown collections with a 404", func() {
		_, err := local.Collection("users").List(ctx)
		Expect(bill.NotFound(err)).To(BeTrue())
	})

	It("should honour a cancelled context", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := local.Collection(bill.CollectionName).List(cancelled)
		Expect(err).To(MatchError(context.Canceled))
	})
})
