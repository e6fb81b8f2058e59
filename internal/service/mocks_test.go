package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"procurement-backend/internal/auth"
	"procurement-backend/internal/cache"
	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- Supplier repository fake ---

type fakeSupplierRepo struct {
	mu        sync.Mutex
	suppliers map[uuid.UUID]*model.Supplier
	createErr error
	updateErr error

	// Invoked before the status check so tests can interleave a competing
	// write between FindByID and UpdateIfStatus.
	beforeUpdateIfStatus func()
}

func newFakeSupplierRepo() *fakeSupplierRepo {
	return &fakeSupplierRepo{suppliers: make(map[uuid.UUID]*model.Supplier)}
}

func (f *fakeSupplierRepo) Create(ctx context.Context, supplier *model.Supplier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if supplier.ID == uuid.Nil {
		supplier.ID = uuid.New()
	}
	clone := *supplier
	f.suppliers[supplier.ID] = &clone
	return nil
}

func (f *fakeSupplierRepo) Update(ctx context.Context, supplier *model.Supplier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	clone := *supplier
	f.suppliers[supplier.ID] = &clone
	return nil
}

func (f *fakeSupplierRepo) UpdateIfStatus(ctx context.Context, supplier *model.Supplier, expectedStatus string) error {
	if f.beforeUpdateIfStatus != nil {
		f.beforeUpdateIfStatus()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.suppliers[supplier.ID]
	if !ok || stored.Status != expectedStatus {
		return repository.ErrStatusConflict
	}
	clone := *supplier
	f.suppliers[supplier.ID] = &clone
	return nil
}

func (f *fakeSupplierRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.suppliers, id)
	return nil
}

func (f *fakeSupplierRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.suppliers[id]; ok {
		clone := *s
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSupplierRepo) findBy(match func(*model.Supplier) bool) (*model.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.suppliers {
		if match(s) {
			clone := *s
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSupplierRepo) FindByEmail(ctx context.Context, email string) (*model.Supplier, error) {
	return f.findBy(func(s *model.Supplier) bool { return s.Email == email })
}

func (f *fakeSupplierRepo) FindByTaxID(ctx context.Context, taxID string) (*model.Supplier, error) {
	return f.findBy(func(s *model.Supplier) bool { return s.TaxID == taxID })
}

func (f *fakeSupplierRepo) FindByRegistrationNumber(ctx context.Context, regNo string) (*model.Supplier, error) {
	return f.findBy(func(s *model.Supplier) bool { return s.RegistrationNumber == regNo })
}

func (f *fakeSupplierRepo) List(ctx context.Context, status, search string, page, limit int) ([]model.Supplier, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Supplier
	for _, s := range f.suppliers {
		if status != "" && s.Status != status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(search)) {
			continue
		}
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

func (f *fakeSupplierRepo) ReplaceCategories(ctx context.Context, supplier *model.Supplier, categories []model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.suppliers[supplier.ID]; ok {
		s.Categories = categories
	}
	return nil
}

func (f *fakeSupplierRepo) DeleteCategoryLinks(ctx context.Context, supplierID uuid.UUID) error {
	return nil
}

// --- Contract repository fake ---

type fakeContractRepo struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]*model.Contract
	seq       int
	createErr error
}

func newFakeContractRepo() *fakeContractRepo {
	return &fakeContractRepo{contracts: make(map[uuid.UUID]*model.Contract)}
}

func (f *fakeContractRepo) Create(ctx context.Context, contract *model.Contract) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if contract.ID == uuid.Nil {
		contract.ID = uuid.New()
	}
	clone := *contract
	f.contracts[contract.ID] = &clone
	return nil
}

func (f *fakeContractRepo) Update(ctx context.Context, contract *model.Contract) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *contract
	f.contracts[contract.ID] = &clone
	return nil
}

func (f *fakeContractRepo) UpdateIfStatus(ctx context.Context, contract *model.Contract, expectedStatus string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.contracts[contract.ID]
	if !ok || stored.Status != expectedStatus {
		return repository.ErrStatusConflict
	}
	clone := *contract
	f.contracts[contract.ID] = &clone
	return nil
}

func (f *fakeContractRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.contracts, id)
	return nil
}

func (f *fakeContractRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.contracts[id]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeContractRepo) List(ctx context.Context, status, supplierID string, page, limit int) ([]model.Contract, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Contract
	for _, c := range f.contracts {
		if status != "" && c.Status != status {
			continue
		}
		if supplierID != "" && c.SupplierID.String() != supplierID {
			continue
		}
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (f *fakeContractRepo) NextContractNumber(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return "CTR-20260101-" + string(rune('0'+f.seq)), nil
}

// --- Payment repository fake ---

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*model.Payment
	seq      int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*model.Payment)}
}

func (f *fakePaymentRepo) Create(ctx context.Context, payment *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	clone := *payment
	f.payments[payment.ID] = &clone
	return nil
}

func (f *fakePaymentRepo) Update(ctx context.Context, payment *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *payment
	f.payments[payment.ID] = &clone
	return nil
}

func (f *fakePaymentRepo) UpdateIfStatus(ctx context.Context, payment *model.Payment, expectedStatus string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.payments[payment.ID]
	if !ok || stored.Status != expectedStatus {
		return repository.ErrStatusConflict
	}
	clone := *payment
	f.payments[payment.ID] = &clone
	return nil
}

func (f *fakePaymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.payments, id)
	return nil
}

func (f *fakePaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.payments[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) List(ctx context.Context, status, supplierID string, page, limit int) ([]model.Payment, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Payment
	for _, p := range f.payments {
		if status != "" && p.Status != status {
			continue
		}
		if supplierID != "" && p.SupplierID.String() != supplierID {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (f *fakePaymentRepo) NextPaymentNumber(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return "PAY-20260101-" + string(rune('0'+f.seq)), nil
}

// --- Category repository fake ---

type fakeCategoryRepo struct {
	mu         sync.Mutex
	categories map[uuid.UUID]*model.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: make(map[uuid.UUID]*model.Category)}
}

func (f *fakeCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	clone := *category
	f.categories[category.ID] = &clone
	return nil
}

func (f *fakeCategoryRepo) Update(ctx context.Context, category *model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *category
	f.categories[category.ID] = &clone
	return nil
}

func (f *fakeCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.categories, id)
	return nil
}

func (f *fakeCategoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.categories[id]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCategoryRepo) FindByName(ctx context.Context, name string) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.Name == name {
			clone := *c
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCategoryRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Category
	for _, id := range ids {
		if c, ok := f.categories[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Category
	for _, c := range f.categories {
		out = append(out, *c)
	}
	return out, nil
}

// --- Document repository fake ---

type fakeDocumentRepo struct {
	mu        sync.Mutex
	documents map[uuid.UUID]*model.Document
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{documents: make(map[uuid.UUID]*model.Document)}
}

func (f *fakeDocumentRepo) Create(ctx context.Context, document *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if document.ID == uuid.Nil {
		document.ID = uuid.New()
	}
	clone := *document
	f.documents[document.ID] = &clone
	return nil
}

func (f *fakeDocumentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.documents, id)
	return nil
}

func (f *fakeDocumentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.documents[id]; ok {
		clone := *d
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDocumentRepo) listBy(match func(*model.Document) bool) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Document
	for _, d := range f.documents {
		if match(d) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDocumentRepo) ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]model.Document, error) {
	return f.listBy(func(d *model.Document) bool { return d.SupplierID != nil && *d.SupplierID == supplierID })
}

func (f *fakeDocumentRepo) ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.Document, error) {
	return f.listBy(func(d *model.Document) bool { return d.ContractID != nil && *d.ContractID == contractID })
}

func (f *fakeDocumentRepo) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]model.Document, error) {
	return f.listBy(func(d *model.Document) bool { return d.PaymentID != nil && *d.PaymentID == paymentID })
}

// --- User repository fake ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (f *fakeUserRepo) addUser(role string, active bool) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &model.User{ID: uuid.New(), Username: "user-" + role, Email: uuid.NewString() + "@example.com", Role: role, IsActive: active}
	f.users[u.ID] = u
	return u
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[uid]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) ListActiveByRole(ctx context.Context, role string) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, u := range f.users {
		if u.Role == role && u.IsActive {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return gorm.ErrRecordNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, uid)
	return nil
}

// --- Refresh token repository fake ---

type fakeRefreshTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.RefreshToken
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: make(map[string]*model.RefreshToken)}
}

func (f *fakeRefreshTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	clone := *token
	f.tokens[token.Token] = &clone
	return nil
}

func (f *fakeRefreshTokenRepo) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rt, ok := f.tokens[token]; ok {
		clone := *rt
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRefreshTokenRepo) DeleteByToken(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshTokenRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, rt := range f.tokens {
		if rt.UserID == userID {
			delete(f.tokens, key)
		}
	}
	return nil
}

func (f *fakeRefreshTokenRepo) DeleteExpired(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for key, rt := range f.tokens {
		if rt.ExpiresAt.Before(now) {
			delete(f.tokens, key)
		}
	}
	return nil
}

// --- Notification repository fake ---

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]*model.Notification
	createErr     error
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[uuid.UUID]*model.Notification)}
}

func (f *fakeNotificationRepo) all() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for _, n := range f.notifications {
		out = append(out, *n)
	}
	return out
}

func (f *fakeNotificationRepo) Create(ctx context.Context, notification *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	clone := *notification
	f.notifications[notification.ID] = &clone
	return nil
}

func (f *fakeNotificationRepo) CreateBatch(ctx context.Context, notifications []model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for i := range notifications {
		if notifications[i].ID == uuid.Nil {
			notifications[i].ID = uuid.New()
		}
		clone := notifications[i]
		f.notifications[clone.ID] = &clone
	}
	return nil
}

func (f *fakeNotificationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.notifications[id]; ok {
		clone := *n
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for _, n := range f.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, *n)
	}
	return out, int64(len(out)), nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.notifications[id]; ok {
		n.IsRead = true
	}
	return nil
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

// --- Audit repository fake ---

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
	logErr  error
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (f *fakeAuditRepo) all() []model.AuditLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.AuditLog, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logErr != nil {
		return f.logErr
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, filter repository.AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AuditLog
	for _, e := range f.entries {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

// --- Permission repository fake ---

type fakePermissionRepo struct {
	mu          sync.Mutex
	permissions []model.Permission
	listCalls   int
}

func newFakePermissionRepo() *fakePermissionRepo {
	return &fakePermissionRepo{}
}

func (f *fakePermissionRepo) ListGrantedByRole(ctx context.Context, role string) ([]model.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var out []model.Permission
	for _, p := range f.permissions {
		if p.Role == role && p.IsGranted {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePermissionRepo) Upsert(ctx context.Context, permission *model.Permission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.permissions {
		if p.Role == permission.Role && p.Resource == permission.Resource && p.Action == permission.Action {
			f.permissions[i].IsGranted = permission.IsGranted
			return nil
		}
	}
	f.permissions = append(f.permissions, *permission)
	return nil
}

func (f *fakePermissionRepo) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.permissions)), nil
}

// --- Misc fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePublisher) Publish(event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	copy(out, f.events)
	return out
}

// --- Shared fixture ---

// fixture wires real services over in-memory fakes. Caching is disabled by
// default (nil Redis client); tests that exercise cache behavior swap in a
// miniredis-backed store before constructing services.
type fixture struct {
	suppliers     *fakeSupplierRepo
	contracts     *fakeContractRepo
	payments      *fakePaymentRepo
	categories    *fakeCategoryRepo
	users         *fakeUserRepo
	notifications *fakeNotificationRepo
	audits        *fakeAuditRepo
	perms         *fakePermissionRepo
	publisher     *fakePublisher
	store         *cache.Store

	permService  PermissionService
	auditService AuditService
	notifier     NotificationService
}

func newFixture() *fixture {
	f := &fixture{
		suppliers:     newFakeSupplierRepo(),
		contracts:     newFakeContractRepo(),
		payments:      newFakePaymentRepo(),
		categories:    newFakeCategoryRepo(),
		users:         newFakeUserRepo(),
		notifications: newFakeNotificationRepo(),
		audits:        newFakeAuditRepo(),
		perms:         newFakePermissionRepo(),
		publisher:     &fakePublisher{},
		store:         cache.NewStore(nil),
	}
	f.rebuild()
	return f
}

// rebuild reconstructs the shared services after a test swaps the store.
func (f *fixture) rebuild() {
	f.permService = NewPermissionService(f.perms, f.store)
	f.auditService = NewAuditService(f.audits, f.permService)
	f.notifier = NewNotificationService(f.notifications, f.users, f.publisher)
}

func (f *fixture) supplierService() SupplierService {
	return NewSupplierService(f.suppliers, f.categories, f.permService, f.auditService, f.notifier, f.store, f.publisher, fakeTxManager{})
}

func (f *fixture) contractService() ContractService {
	return NewContractService(f.contracts, f.suppliers, f.permService, f.auditService, f.notifier, f.store, f.publisher, fakeTxManager{})
}

func (f *fixture) paymentService() PaymentService {
	return NewPaymentService(f.payments, f.suppliers, f.contracts, f.permService, f.auditService, f.notifier, f.store, f.publisher, fakeTxManager{})
}

func (f *fixture) registrationService() RegistrationService {
	return NewRegistrationService(f.suppliers, f.categories, f.auditService, f.notifier, f.store, f.publisher)
}

func (f *fixture) addSupplier(status string, createdBy *uuid.UUID) *model.Supplier {
	supplier := &model.Supplier{
		ID:                 uuid.New(),
		Name:               "Acme Industrial",
		Email:              uuid.NewString() + "@acme.example",
		TaxID:              "TAX-" + uuid.NewString()[:8],
		RegistrationNumber: "REG-" + uuid.NewString()[:8],
		Status:             status,
		CreatedByID:        createdBy,
	}
	f.suppliers.mu.Lock()
	f.suppliers.suppliers[supplier.ID] = supplier
	f.suppliers.mu.Unlock()
	return supplier
}

func (f *fixture) addContract(supplierID uuid.UUID, status string, createdBy *uuid.UUID) *model.Contract {
	contract := &model.Contract{
		ID:             uuid.New(),
		ContractNumber: "CTR-20260101-00001",
		SupplierID:     supplierID,
		Title:          "Annual supply agreement",
		Status:         status,
		StartDate:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Value:          decimal.NewFromInt(10000),
		CreatedByID:    createdBy,
	}
	f.contracts.mu.Lock()
	f.contracts.contracts[contract.ID] = contract
	f.contracts.mu.Unlock()
	return contract
}

func (f *fixture) addPayment(supplierID uuid.UUID, status string, requestedBy *uuid.UUID) *model.Payment {
	payment := &model.Payment{
		ID:            uuid.New(),
		PaymentNumber: "PAY-20260101-00001",
		SupplierID:    supplierID,
		Amount:        decimal.NewFromInt(500),
		Status:        status,
		RequestedByID: requestedBy,
	}
	f.payments.mu.Lock()
	f.payments.payments[payment.ID] = payment
	f.payments.mu.Unlock()
	return payment
}

func principalWith(role string) *auth.Principal {
	return &auth.Principal{ID: uuid.New(), Email: "actor@example.com", Role: role}
}
