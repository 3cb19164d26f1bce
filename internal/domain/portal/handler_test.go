package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/account"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/booking"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/catalog"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/pharmacy"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/auth"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/kv"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/session"
)

// -- fakes --

type fakeAccounts struct {
	mu    sync.Mutex
	users map[string]*Account
	pass  map[string]string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{users: make(map[string]*Account), pass: make(map[string]string)}
}

func (f *fakeAccounts) Signup(_ context.Context, form account.SignupForm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(form.Email))
	if email == "" || form.Password == "" {
		return account.ErrLoginRequired
	}
	if _, ok := f.users[email]; ok {
		return ErrEmailRegistered
	}
	f.users[email] = &Account{
		UserID:   uuid.New(),
		Email:    email,
		FullName: form.FullName,
		Roles:    auth.RolesFor(false, false),
	}
	f.pass[email] = form.Password
	return nil
}

func (f *fakeAccounts) Login(_ context.Context, email, password string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	a, ok := f.users[email]
	if !ok || f.pass[email] != password {
		return nil, account.ErrInvalidCredentials
	}
	return a, nil
}

func (f *fakeAccounts) byID(id string) (string, *Account) {
	for email, a := range f.users {
		if a.UserID.String() == id {
			return email, a
		}
	}
	return "", nil
}

func (f *fakeAccounts) Profile(_ context.Context, s *session.Session) (*account.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, a := f.byID(s.UserID)
	if a == nil {
		return nil, ErrSessionExpired
	}
	return &account.Profile{UserID: a.UserID, BloodGroup: "O+"}, nil
}

func (f *fakeAccounts) UpdateAccount(_ context.Context, s *session.Session, req account.AccountUpdate) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, a := f.byID(s.UserID)
	if a == nil {
		return nil, ErrSessionExpired
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || strings.TrimSpace(req.FullName) == "" {
		return nil, account.ErrMissingFields
	}
	if other, ok := f.users[email]; ok && other != a {
		return nil, account.ErrEmailTaken
	}
	updated := *a
	updated.Email = email
	updated.FullName = strings.TrimSpace(req.FullName)
	delete(f.users, old)
	f.users[email] = &updated
	f.pass[email] = f.pass[old]
	if email != old {
		delete(f.pass, old)
	}
	return &updated, nil
}

type doctorAt struct{ doctorID, hospitalID uuid.UUID }

func (d doctorAt) DoctorAt(_ context.Context, doctorID, hospitalID uuid.UUID) (*catalog.Doctor, error) {
	if doctorID != d.doctorID || hospitalID != d.hospitalID {
		return nil, catalog.ErrDoctorNotFound
	}
	return &catalog.Doctor{ID: doctorID, HospitalID: hospitalID}, nil
}

// fakePharmacy holds one medicine and per-user carts.
type fakePharmacy struct {
	mu    sync.Mutex
	med   pharmacy.Medicine
	carts map[uuid.UUID]int
}

func newFakePharmacy(stock int) *fakePharmacy {
	return &fakePharmacy{
		med:   pharmacy.Medicine{ID: uuid.New(), Name: "Aspirin", Price: 2.5, Stock: stock},
		carts: make(map[uuid.UUID]int),
	}
}

func (f *fakePharmacy) AddToCart(_ context.Context, userID uuid.UUID, req pharmacy.CartRequest) (*pharmacy.Medicine, *pharmacy.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.MedicineID != f.med.ID {
		return nil, nil, pharmacy.ErrMedicineNotFound
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	f.carts[userID] += req.Quantity
	m := f.med
	return &m, &pharmacy.CartItem{UserID: userID, MedicineID: m.ID, Quantity: f.carts[userID]}, nil
}

func (f *fakePharmacy) RemoveFromCart(_ context.Context, userID, medicineID uuid.UUID) (*pharmacy.Medicine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if medicineID != f.med.ID {
		return nil, pharmacy.ErrMedicineNotFound
	}
	delete(f.carts, userID)
	m := f.med
	return &m, nil
}

func (f *fakePharmacy) ViewCart(_ context.Context, userID uuid.UUID) (*pharmacy.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cart := &pharmacy.Cart{Lines: []pharmacy.CartLine{}}
	if q := f.carts[userID]; q > 0 {
		cart.Lines = append(cart.Lines, pharmacy.CartLine{MedicineID: f.med.ID, Name: f.med.Name, UnitPrice: f.med.Price, Quantity: q, Subtotal: f.med.Price * float64(q)})
		cart.Total = f.med.Price * float64(q)
	}
	return cart, nil
}

func (f *fakePharmacy) Checkout(_ context.Context, userID uuid.UUID) ([]*pharmacy.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.carts[userID]
	if q == 0 {
		return nil, pharmacy.ErrEmptyCart
	}
	if q > f.med.Stock {
		return nil, &pharmacy.StockError{Name: f.med.Name, Available: f.med.Stock}
	}
	f.med.Stock -= q
	delete(f.carts, userID)
	return []*pharmacy.Order{{ID: uuid.New(), UserID: userID, MedicineID: f.med.ID, Quantity: q}}, nil
}

// -- harness --

type portal struct {
	e        *echo.Echo
	accounts *fakeAccounts
	pharm    *fakePharmacy
	bookings *booking.Service
	repo     *booking.FileRepo
	dir      doctorAt
}

func newPortal(t *testing.T, mw ...echo.MiddlewareFunc) *portal {
	t.Helper()
	dir := doctorAt{doctorID: uuid.New(), hospitalID: uuid.New()}
	repo := booking.NewFileRepo(filepath.Join(t.TempDir(), "appointments.json"))
	bookings := booking.NewService(repo, kv.NewMemoryStore(), dir, 30*time.Minute, zerolog.Nop())
	p := &portal{
		e:        echo.New(),
		accounts: newFakeAccounts(),
		pharm:    newFakePharmacy(3),
		bookings: bookings,
		repo:     repo,
		dir:      dir,
	}
	sessions := session.NewManager(kv.NewMemoryStore(), session.Config{CookieName: "sid", TTL: time.Hour})
	h := NewHandler(p.accounts, bookings, p.pharm, sessions, zerolog.Nop())
	h.RegisterRoutes(p.e.Group("/portal"), mw...)
	return p
}

// browser keeps the session cookie between requests.
type browser struct {
	t      *testing.T
	p      *portal
	cookie *http.Cookie
}

func (p *portal) browser(t *testing.T) *browser {
	return &browser{t: t, p: p}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rec := httptest.NewRecorder()
	b.p.e.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sid" {
			if c.MaxAge < 0 {
				b.cookie = nil
			} else {
				cc := *c
				b.cookie = &cc
			}
		}
	}
	return rec
}

func (b *browser) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return b.do(req)
}

func (b *browser) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	b.t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		b.t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(raw)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return b.do(req)
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) messages() []string {
	b.t.Helper()
	rec := b.get("/portal/messages")
	if rec.Code != http.StatusOK {
		b.t.Fatalf("messages: %d", rec.Code)
	}
	var out struct {
		Messages []string `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		b.t.Fatalf("decode messages: %v", err)
	}
	return out.Messages
}

func (b *browser) signupAndLogin() {
	b.t.Helper()
	form := url.Values{
		"full_name":        {"Asha Rao"},
		"email":            {"asha@example.com"},
		"password":         {"Secret#123"},
		"confirm_password": {"Secret#123"},
	}
	if rec := b.postForm("/portal/signup", form); rec.Code != http.StatusCreated {
		b.t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}
	login := url.Values{"email": {"asha@example.com"}, "password": {"Secret#123"}}
	if rec := b.postForm("/portal/login", login); rec.Code != http.StatusOK {
		b.t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) flashResponse {
	t.Helper()
	var out flashResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func (p *portal) bookingForm() map[string]string {
	return map[string]string{
		"doctor_id":   p.dir.doctorID.String(),
		"hospital_id": p.dir.hospitalID.String(),
		"name":        "Asha Rao",
		"phone":       "9876543210",
		"date":        time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		"time":        "10:30",
		"reason":      "Checkup",
	}
}

func card() map[string]string {
	return map[string]string{
		"payment_method": booking.MethodCreditCard,
		"card_number":    "4111111111111111",
		"expiry":         "12/30",
		"cvv":            "123",
	}
}

func storedAppointments(t *testing.T, p *portal) int {
	t.Helper()
	_, total, err := p.repo.List(context.Background(), 100, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return total
}

// -- tests --

func TestSignupLoginFlashes(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	b.signupAndLogin()

	got := b.messages()
	if len(got) != 2 || got[0] != MsgSignedUp || got[1] != MsgLoggedIn {
		t.Fatalf("messages = %v", got)
	}
	if again := b.messages(); len(again) != 0 {
		t.Errorf("flashes are shown once, got %v", again)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	b.signupAndLogin()
	b.messages()

	form := url.Values{"email": {"asha@example.com"}, "password": {"Other#123"}, "confirm_password": {"Other#123"}}
	rec := b.postForm("/portal/signup", form)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if got := b.messages(); len(got) != 1 || got[0] != ErrEmailRegistered.Error() {
		t.Errorf("messages = %v", got)
	}
}

func TestLogin_BadPassword(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	b.signupAndLogin()
	b.postForm("/portal/logout", nil)

	rec := b.postForm("/portal/login", url.Values{"email": {"asha@example.com"}, "password": {"wrong"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := b.get("/portal/appointments"); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected anonymous session, got %d", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	b.signupAndLogin()

	if rec := b.postForm("/portal/logout", nil); rec.Code != http.StatusOK {
		t.Fatalf("logout: %d", rec.Code)
	}
	if rec := b.get("/portal/cart"); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rec.Code)
	}
	got := b.messages()
	if len(got) != 1 || got[0] != MsgLoggedOut {
		t.Errorf("messages = %v", got)
	}
}

func TestBooking_RequiresLogin(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	rec := b.postJSON("/portal/appointments/book", p.bookingForm())
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestBookThenPay(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	b.signupAndLogin()
	b.messages()

	rec := b.postJSON("/portal/appointments/book", p.bookingForm())
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: %d %s", rec.Code, rec.Body.String())
	}
	staged := decode(t, rec)
	if staged.BookingToken == "" || staged.State != string(booking.StateAwaitingPayment) {
		t.Fatalf("unexpected staging response %+v", staged)
	}
	if n := storedAppointments(t, p); n != 0 {
		t.Fatalf("staging must not persist, found %d", n)
	}

	// The token comes from the session; the form does not repeat it.
	rec = b.postJSON("/portal/appointments/payment", card())
	if rec.Code != http.StatusCreated {
		t.Fatalf("payment: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec).Message; got != booking.MsgPaymentSuccess {
		t.Errorf("message = %q", got)
	}
	if n := storedAppointments(t, p); n != 1 {
		t.Fatalf("expected 1 appointment, got %d", n)
	}

	// A second submit finds no staged booking.
	rec = b.postJSON("/portal/appointments/payment", card())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("resubmit: expected 400, got %d", rec.Code)
	}
	if n := storedAppointments(t, p); n != 1 {
		t.Errorf("resubmit double-booked: %d", n)
	}
	got := b.messages()
	want := []string{MsgStaged, booking.MsgPaymentSuccess, booking.ErrNoStagedBooking.Error()}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("messages = %v, want %v", got, want)
	}
}

func TestPayment_InvalidCardKeepsDraft(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	b.signupAndLogin()

	b.postJSON("/portal/appointments/book", p.bookingForm())
	bad := card()
	bad["card_number"] = "4111"
	rec := b.postJSON("/portal/appointments/payment", bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if n := storedAppointments(t, p); n != 0 {
		t.Fatalf("rejected payment persisted %d appointments", n)
	}

	rec = b.postJSON("/portal/appointments/payment", card())
	if rec.Code != http.StatusCreated {
		t.Fatalf("retry: %d %s", rec.Code, rec.Body.String())
	}
}

func TestPayment_CashFlashesBoth(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	b.signupAndLogin()
	b.postJSON("/portal/appointments/book", p.bookingForm())
	b.messages()

	rec := b.postJSON("/portal/appointments/payment", map[string]string{"payment_method": booking.MethodCash})
	if rec.Code != http.StatusCreated {
		t.Fatalf("payment: %d %s", rec.Code, rec.Body.String())
	}
	got := b.messages()
	if len(got) != 2 || got[0] != booking.MsgCashSelected || got[1] != booking.MsgPaymentSuccess {
		t.Errorf("messages = %v", got)
	}
}

func TestBook_PastDateRejected(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	b.signupAndLogin()

	form := p.bookingForm()
	form["date"] = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	rec := b.postJSON("/portal/appointments/book", form)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = b.postJSON("/portal/appointments/payment", card())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("nothing staged: expected 400, got %d", rec.Code)
	}
}

func TestDiscard(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	b.signupAndLogin()
	b.postJSON("/portal/appointments/book", p.bookingForm())

	if rec := b.postForm("/portal/appointments/discard", nil); rec.Code != http.StatusOK {
		t.Fatalf("discard: %d", rec.Code)
	}
	if rec := b.postJSON("/portal/appointments/payment", card()); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 after discard, got %d", rec.Code)
	}
}

func TestCancelOwnAppointment(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	b.signupAndLogin()
	b.postJSON("/portal/appointments/book", p.bookingForm())
	rec := b.postJSON("/portal/appointments/payment", card())
	raw, _ := json.Marshal(decode(t, rec).Data)
	var a booking.Appointment
	if err := json.Unmarshal(raw, &a); err != nil {
		t.Fatalf("decode appointment: %v", err)
	}

	other := p.browser(t)
	if rec := other.postForm("/portal/signup", url.Values{"email": {"ben@example.com"}, "password": {"Secret#123"}, "confirm_password": {"Secret#123"}}); rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d", rec.Code)
	}
	other.postForm("/portal/login", url.Values{"email": {"ben@example.com"}, "password": {"Secret#123"}})
	if rec := other.postForm("/portal/appointments/"+a.ID.String()+"/cancel", nil); rec.Code != http.StatusNotFound {
		t.Errorf("other patient: expected 404, got %d", rec.Code)
	}

	rec = b.postForm("/portal/appointments/"+a.ID.String()+"/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec).Message; got != MsgCancelled {
		t.Errorf("message = %q", got)
	}
	if n := storedAppointments(t, p); n != 0 {
		t.Errorf("expected appointment removed, %d left", n)
	}
}

func TestCartFlow(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	b.signupAndLogin()
	b.messages()
	mid := p.pharm.med.ID.String()

	rec := b.postForm("/portal/cart/add/"+mid, url.Values{"quantity": {"2"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("add: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec).Message; got != pharmacy.AddedMessage("Aspirin") {
		t.Errorf("message = %q", got)
	}

	rec = b.postForm("/portal/cart/checkout", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: %d %s", rec.Code, rec.Body.String())
	}
	if p.pharm.med.Stock != 1 {
		t.Errorf("stock = %d, want 1", p.pharm.med.Stock)
	}

	rec = b.postForm("/portal/cart/checkout", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty cart: expected 400, got %d", rec.Code)
	}
	got := b.messages()
	want := []string{pharmacy.AddedMessage("Aspirin"), pharmacy.MsgOrderPlaced, pharmacy.ErrEmptyCart.Error()}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("messages = %v, want %v", got, want)
	}
}

func TestCart_StockErrorFlashed(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	b.signupAndLogin()
	b.messages()
	mid := p.pharm.med.ID.String()

	b.postForm("/portal/cart/add/"+mid, url.Values{"quantity": {"5"}})
	rec := b.postForm("/portal/cart/checkout", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if p.pharm.med.Stock != 3 {
		t.Errorf("stock changed to %d", p.pharm.med.Stock)
	}
	got := b.messages()
	if len(got) != 2 || got[1] != "Not enough stock for Aspirin. Available: 3" {
		t.Errorf("messages = %v", got)
	}

	rec = b.postForm("/portal/cart/remove/"+mid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: %d", rec.Code)
	}
	if got := decode(t, rec).Message; got != pharmacy.RemovedMessage("Aspirin") {
		t.Errorf("message = %q", got)
	}
}

func TestCart_InvalidMedicineID(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	b.signupAndLogin()
	if rec := b.postForm("/portal/cart/add/not-a-uuid", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestProfile(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)

	if rec := b.get("/portal/profile"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous profile: expected 401, got %d", rec.Code)
	}

	b.signupAndLogin()
	rec := b.get("/portal/profile")
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: %d %s", rec.Code, rec.Body.String())
	}
	var prof account.Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &prof); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if prof.UserID != p.accounts.users["asha@example.com"].UserID || prof.BloodGroup != "O+" {
		t.Errorf("unexpected profile %+v", prof)
	}
}

func TestSettings(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	b.signupAndLogin()
	b.messages()

	form := url.Values{"full_name": {"Asha R"}, "email": {"asha.r@example.com"}, "gender": {"female"}}
	rec := b.postForm("/portal/settings", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("settings: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec).Message; got != account.MsgSettingsUpdated {
		t.Errorf("message = %q", got)
	}
	if got := b.messages(); len(got) != 1 || got[0] != "Settings updated successfully!" {
		t.Errorf("messages = %v", got)
	}

	// The session follows the new email: a fresh login with it works and
	// the profile is still served for the same user.
	if rec := b.get("/portal/profile"); rec.Code != http.StatusOK {
		t.Errorf("profile after update: %d", rec.Code)
	}
	other := p.browser(t)
	login := url.Values{"email": {"asha.r@example.com"}, "password": {"Secret#123"}}
	if rec := other.postForm("/portal/login", login); rec.Code != http.StatusOK {
		t.Errorf("login with new email: %d %s", rec.Code, rec.Body.String())
	}
}

func TestSettings_Errors(t *testing.T) {
	p := newPortal(t)

	if rec := p.browser(t).postForm("/portal/settings", url.Values{"full_name": {"X"}}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous settings: expected 401, got %d", rec.Code)
	}

	taken := p.browser(t)
	form := url.Values{
		"full_name":        {"Ravi"},
		"email":            {"ravi@example.com"},
		"password":         {"Secret#123"},
		"confirm_password": {"Secret#123"},
	}
	if rec := taken.postForm("/portal/signup", form); rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d", rec.Code)
	}

	b := p.browser(t)
	b.signupAndLogin()
	b.messages()

	rec := b.postForm("/portal/settings", url.Values{"full_name": {"Asha"}, "email": {"ravi@example.com"}})
	if rec.Code != http.StatusConflict {
		t.Fatalf("taken email: expected 409, got %d", rec.Code)
	}
	if got := b.messages(); len(got) != 1 || got[0] != account.ErrEmailTaken.Error() {
		t.Errorf("messages = %v", got)
	}

	rec = b.postForm("/portal/settings", url.Values{"email": {"asha@example.com"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name: expected 400, got %d", rec.Code)
	}
}

func TestRegisterRoutes_MiddlewareSeesSessionUser(t *testing.T) {
	var seen []string
	record := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			seen = append(seen, auth.UserIDFromContext(c.Request().Context()))
			return next(c)
		}
	}
	p := newPortal(t, record)
	b := p.browser(t)
	b.signupAndLogin()

	seen = nil
	b.get("/portal/cart")
	want := p.accounts.users["asha@example.com"].UserID.String()
	if len(seen) != 1 || seen[0] != want {
		t.Errorf("middleware saw %v, want [%s]", seen, want)
	}
}
