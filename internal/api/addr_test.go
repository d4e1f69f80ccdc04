package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"user_system/internal/domain"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// doJSON performs an authenticated JSON request against the router
func doJSON(t *testing.T, r http.Handler, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// seedAddr inserts an address for a user
func seedAddr(t *testing.T, db *gorm.DB, userID uint, name string, isDefault bool) domain.Addr {
	t.Helper()
	addr := domain.Addr{
		UserID:    userID,
		Name:      name,
		Phone:     "13800138000",
		Province:  "广东省",
		City:      "深圳市",
		County:    "南山区",
		IsDefault: isDefault,
	}
	assert.NoError(t, db.Create(&addr).Error)
	return addr
}

// defaultCount returns how many of a user's addresses carry the flag
func defaultCount(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	assert.NoError(t, db.Model(&domain.Addr{}).
		Where("user_id = ? AND is_default = ?", userID, true).Count(&n).Error)
	return n
}

func TestAddrListOwnerScoped(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db, newTestStore(t))
	owner := seedUser(t, db, "owner", "owner@example.com", "", "secret1", false)
	other := seedUser(t, db, "other", "other@example.com", "", "secret1", false)
	seedAddr(t, db, owner.ID, "家", false)
	seedAddr(t, db, owner.ID, "公司", false)
	foreign := seedAddr(t, db, other.ID, "学校", false)

	// A client-supplied filter for another user's address changes nothing
	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/user/address?id=%d&user_id=%d", foreign.ID, other.ID), bearer(t, &owner), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Addrs []domain.Addr `json:"addrs"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Addrs, 2)
	for _, a := range resp.Addrs {
		assert.Equal(t, owner.ID, a.UserID)
	}
}

func TestAddrCreateForcesOwner(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db, newTestStore(t))
	user := seedUser(t, db, "creator", "creator@example.com", "", "secret1", false)

	w := doJSON(t, r, http.MethodPost, "/user/address", bearer(t, &user), AddrRequest{
		Name: "张三", Phone: "13900139000", Province: "北京市", City: "北京市", County: "海淀区",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var addrs []domain.Addr
	assert.NoError(t, db.Find(&addrs).Error)
	assert.Len(t, addrs, 1)
	assert.Equal(t, user.ID, addrs[0].UserID)
}

func TestAddrCreateDefaultDisplacesPrevious(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db, newTestStore(t))
	user := seedUser(t, db, "mover", "mover@example.com", "", "secret1", false)
	old := seedAddr(t, db, user.ID, "旧地址", true)

	w := doJSON(t, r, http.MethodPost, "/user/address", bearer(t, &user), AddrRequest{
		Name: "李四", Phone: "13900139000", Province: "上海市", City: "上海市", County: "浦东新区", IsDefault: true,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var reloaded domain.Addr
	assert.NoError(t, db.First(&reloaded, old.ID).Error)
	assert.False(t, reloaded.IsDefault)
	assert.EqualValues(t, 1, defaultCount(t, db, user.ID))
}

func TestSetDefaultMovesFlag(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db, newTestStore(t))
	user := seedUser(t, db, "switcher", "switcher@example.com", "", "secret1", false)
	addrA := seedAddr(t, db, user.ID, "地址A", true)
	addrB := seedAddr(t, db, user.ID, "地址B", false)

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/user/address/%d/default", addrB.ID), bearer(t, &user), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var a, b domain.Addr
	assert.NoError(t, db.First(&a, addrA.ID).Error)
	assert.NoError(t, db.First(&b, addrB.ID).Error)
	assert.False(t, a.IsDefault)
	assert.True(t, b.IsDefault)
	assert.EqualValues(t, 1, defaultCount(t, db, user.ID))
}

func TestSetDefaultConcurrentCallsKeepOneDefault(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db, newTestStore(t))
	user := seedUser(t, db, "racer", "racer@example.com", "", "secret1", false)
	addrA := seedAddr(t, db, user.ID, "地址A", false)
	addrB := seedAddr(t, db, user.ID, "地址B", false)
	auth := bearer(t, &user)

	var wg sync.WaitGroup
	for _, id := range []uint{addrA.ID, addrB.ID} {
		wg.Add(1)
		go func(addrID uint) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPut, fmt.Sprintf("/user/address/%d/default", addrID), nil)
			req.Header.Set("Authorization", auth)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
		}(id)
	}
	wg.Wait()

	// Whichever call committed last, exactly one default remains
	assert.EqualValues(t, 1, defaultCount(t, db, user.ID))
}

func TestSetDefaultAuthorization(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db, newTestStore(t))
	owner := seedUser(t, db, "addrowner", "addrowner@example.com", "", "secret1", false)
	stranger := seedUser(t, db, "stranger", "stranger@example.com", "", "secret1", false)
	admin := seedUser(t, db, "admin", "admin@example.com", "", "secret1", true)
	addr := seedAddr(t, db, owner.ID, "家", false)

	// A stranger is rejected
	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/user/address/%d/default", addr.ID), bearer(t, &stranger), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// An administrator passes the same policy
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/user/address/%d/default", addr.ID), bearer(t, &admin), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// A missing address is not found
	w = doJSON(t, r, http.MethodPut, "/user/address/99999/default", bearer(t, &owner), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddrUpdateAndDelete(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db, newTestStore(t))
	user := seedUser(t, db, "editor", "editor@example.com", "", "secret1", false)
	stranger := seedUser(t, db, "intruder", "intruder@example.com", "", "secret1", false)
	addr := seedAddr(t, db, user.ID, "旧名", true)

	// Update rewrites the contact fields but never the default flag
	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/user/address/%d", addr.ID), bearer(t, &user), AddrRequest{
		Name: "新名", Phone: "13600136000", Province: "浙江省", City: "杭州市", County: "西湖区", IsDefault: false,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	var reloaded domain.Addr
	assert.NoError(t, db.First(&reloaded, addr.ID).Error)
	assert.Equal(t, "新名", reloaded.Name)
	assert.Equal(t, "杭州市", reloaded.City)
	assert.True(t, reloaded.IsDefault)

	// A stranger cannot delete it
	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/user/address/%d", addr.ID), bearer(t, &stranger), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The owner can
	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/user/address/%d", addr.ID), bearer(t, &user), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.ErrorIs(t, db.First(&reloaded, addr.ID).Error, gorm.ErrRecordNotFound)
}

func TestDeleteUserCascadesAddresses(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "leaver", "leaver@example.com", "", "secret1", false)
	seedAddr(t, db, user.ID, "家", true)
	seedAddr(t, db, user.ID, "公司", false)

	assert.NoError(t, db.Delete(&domain.User{}, user.ID).Error)

	var orphaned int64
	assert.NoError(t, db.Model(&domain.Addr{}).Where("user_id = ?", user.ID).Count(&orphaned).Error)
	assert.EqualValues(t, 0, orphaned)
}
