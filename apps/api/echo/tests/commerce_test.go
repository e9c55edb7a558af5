package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/invoice"
	"github.com/trezcool/academia/core/track"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

func Test_trackApi(t *testing.T) {
	app := setup(t)
	adminToken := app.token(t, app.createUser(t, "admin", user.RoleAdmin))
	studentToken := app.token(t, app.createUser(t, "student", user.RoleStudent))

	// only admins create tracks
	newTrack := map[string]interface{}{"slug": "Go-Basics", "title": "Go Basics", "price": 1500, "currency": "eur"}
	rec := app.do(newRequest(http.MethodPost, "/api/tracks", studentToken, newTrack))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(newRequest(http.MethodPost, "/api/tracks", adminToken, newTrack))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var trk track.Track
	decode(t, rec, &trk)
	assert.Equal(t, "go-basics", trk.Slug)
	assert.Equal(t, "EUR", trk.Currency)
	assert.False(t, trk.Published)

	rec = app.do(newRequest(http.MethodPost, "/api/tracks", adminToken, newTrack))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "slugs are unique")

	rec = app.do(newRequest(http.MethodPost, "/api/tracks/"+trk.ID+"/courses", adminToken, map[string]interface{}{"title": "Types", "position": 1}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = app.do(newRequest(http.MethodPost, "/api/tracks/"+trk.ID+"/courses", adminToken, map[string]interface{}{"title": "Hello", "position": 0}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// unpublished tracks are hidden from students
	rec = app.do(newRequest(http.MethodGet, "/api/tracks", studentToken, nil))
	assert.JSONEq(t, "[]", rec.Body.String())
	rec = app.do(newRequest(http.MethodGet, "/api/tracks/"+trk.ID, studentToken, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(newRequest(http.MethodPut, "/api/tracks/"+trk.ID, adminToken, map[string]interface{}{"published": true}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(newRequest(http.MethodGet, "/api/tracks/"+trk.ID, studentToken, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &trk)
	assert.True(t, trk.Published)
	assert.Equal(t, "Go Basics", trk.Title)
	require.Len(t, trk.Courses, 2)
	assert.Equal(t, "Hello", trk.Courses[0].Title, "courses are ordered by position")

	rec = app.do(newRequest(http.MethodDelete, "/api/tracks/"+trk.ID, adminToken, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(newRequest(http.MethodGet, "/api/tracks/"+trk.ID, adminToken, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_enrollmentFlow(t *testing.T) {
	app := setup(t)
	adminToken := app.token(t, app.createUser(t, "admin", user.RoleAdmin))
	student := app.createUser(t, "student", user.RoleStudent)
	studentToken := app.token(t, student)
	otherToken := app.token(t, app.createUser(t, "other", user.RoleStudent))

	free := testutil.CreateTrack(t, app.trackRepo, "free", "Free Track", 0, true)
	paid := testutil.CreateTrack(t, app.trackRepo, "paid", "Paid Track", 2500, true)
	draft := testutil.CreateTrack(t, app.trackRepo, "draft", "Draft Track", 0, false)

	t.Run("free tracks activate immediately", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodPost, "/api/enrollments", studentToken, map[string]string{"track_id": free.ID}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp echoapi.EnrollResponse
		decode(t, rec, &resp)
		assert.Equal(t, enrollment.StatusActive, resp.Enrollment.Status)
		assert.Nil(t, resp.Invoice)

		rec = app.do(newRequest(http.MethodPost, "/api/enrollments", studentToken, map[string]string{"track_id": free.ID}))
		assert.Equal(t, http.StatusConflict, rec.Code, "already enrolled")
	})

	t.Run("unpublished & unknown tracks", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodPost, "/api/enrollments", studentToken, map[string]string{"track_id": draft.ID}))
		assert.Equal(t, http.StatusConflict, rec.Code)
		rec = app.do(newRequest(http.MethodPost, "/api/enrollments", studentToken, map[string]string{"track_id": "nope"}))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = app.do(newRequest(http.MethodPost, "/api/enrollments", studentToken, map[string]string{}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	var paidEnrollment enrollment.Enrollment
	var inv invoice.Invoice
	t.Run("paid tracks wait for their invoice", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodPost, "/api/enrollments", studentToken, map[string]string{"track_id": paid.ID}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp echoapi.EnrollResponse
		decode(t, rec, &resp)
		paidEnrollment = resp.Enrollment
		require.NotNil(t, resp.Invoice)
		inv = *resp.Invoice
		assert.Equal(t, enrollment.StatusPending, paidEnrollment.Status)
		assert.Equal(t, invoice.StatusUnpaid, inv.Status)
		assert.EqualValues(t, 2500, inv.Amount)
		assert.Equal(t, paidEnrollment.ID, inv.EnrollmentID)
	})

	t.Run("visibility", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodGet, "/api/enrollments", studentToken, nil))
		var enrollments []enrollment.Enrollment
		decode(t, rec, &enrollments)
		assert.Len(t, enrollments, 2)

		rec = app.do(newRequest(http.MethodGet, "/api/enrollments", otherToken, nil))
		assert.JSONEq(t, "[]", rec.Body.String())
		rec = app.do(newRequest(http.MethodGet, "/api/enrollments/"+paidEnrollment.ID, otherToken, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = app.do(newRequest(http.MethodGet, "/api/invoices/"+inv.ID, otherToken, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = app.do(newRequest(http.MethodGet, "/api/invoices?user_id="+student.ID, adminToken, nil))
		var invoices []invoice.Invoice
		decode(t, rec, &invoices)
		assert.Len(t, invoices, 1)
	})

	t.Run("settle", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodPost, "/api/invoices/"+inv.ID+"/pay", studentToken, nil))
		assert.Equal(t, http.StatusForbidden, rec.Code, "only admins settle invoices")

		rec = app.do(newRequest(http.MethodPost, "/api/invoices/"+inv.ID+"/pay", adminToken, nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp echoapi.SettleResponse
		decode(t, rec, &resp)
		assert.Equal(t, enrollment.StatusActive, resp.Enrollment.Status)
		assert.Equal(t, invoice.StatusPaid, resp.Invoice.Status)
		assert.True(t, resp.Invoice.PaidAt.Valid)

		rec = app.do(newRequest(http.MethodPost, "/api/invoices/"+inv.ID+"/pay", adminToken, nil))
		assert.Equal(t, http.StatusConflict, rec.Code, "already paid")
		rec = app.do(newRequest(http.MethodPost, "/api/invoices/"+inv.ID+"/void", adminToken, nil))
		assert.Equal(t, http.StatusConflict, rec.Code, "paid invoices cannot be voided")
	})

	t.Run("cancel", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodPost, "/api/enrollments/"+paidEnrollment.ID+"/cancel", studentToken, nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var e enrollment.Enrollment
		decode(t, rec, &e)
		assert.Equal(t, enrollment.StatusCancelled, e.Status)

		rec = app.do(newRequest(http.MethodPost, "/api/enrollments/"+paidEnrollment.ID+"/cancel", studentToken, nil))
		assert.Equal(t, http.StatusConflict, rec.Code)

		// the seat is free again: a new invoice is issued
		rec = app.do(newRequest(http.MethodPost, "/api/enrollments", studentToken, map[string]string{"track_id": paid.ID}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp echoapi.EnrollResponse
		decode(t, rec, &resp)
		require.NotNil(t, resp.Invoice)

		// cancelling an unpaid enrollment voids its invoice
		rec = app.do(newRequest(http.MethodPost, "/api/enrollments/"+resp.Enrollment.ID+"/cancel", studentToken, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		rec = app.do(newRequest(http.MethodGet, "/api/invoices/"+resp.Invoice.ID, studentToken, nil))
		var voided invoice.Invoice
		decode(t, rec, &voided)
		assert.Equal(t, invoice.StatusVoid, voided.Status)
	})
}

func Test_userApi(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "admin", user.RoleAdmin)
	student := app.createUser(t, "student", user.RoleStudent)
	app.createUser(t, "teacher", user.RoleTeacher)
	adminToken := app.token(t, admin)
	studentToken := app.token(t, student)

	tests := []struct {
		name      string
		path      string
		token     string
		wantCode  int
		wantUsers []string
	}{
		{name: "anonymous", path: "/api/users", wantCode: http.StatusUnauthorized},
		{name: "not admin", path: "/api/users", token: studentToken, wantCode: http.StatusForbidden},
		{name: "all", path: "/api/users?ordering=username", token: adminToken, wantCode: http.StatusOK, wantUsers: []string{"admin", "student", "teacher"}},
		{name: "desc", path: "/api/users?ordering=-username", token: adminToken, wantCode: http.StatusOK, wantUsers: []string{"teacher", "student", "admin"}},
		{name: "search", path: "/api/users?search=TEACH", token: adminToken, wantCode: http.StatusOK, wantUsers: []string{"teacher"}},
		{name: "role", path: "/api/users?role=student:", token: adminToken, wantCode: http.StatusOK, wantUsers: []string{"student"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newRequest(http.MethodGet, tt.path, tt.token, nil))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}
			var users []user.User
			decode(t, rec, &users)
			unames := make([]string, 0, len(users))
			for _, u := range users {
				unames = append(unames, u.Username)
			}
			assert.Equal(t, tt.wantUsers, unames)
		})
	}

	t.Run("me", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodGet, "/api/users/me", studentToken, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var me user.User
		decode(t, rec, &me)
		assert.Equal(t, student.ID, me.ID)
	})

	t.Run("students only reach themselves", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodGet, "/api/users/"+admin.ID, studentToken, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = app.do(newRequest(http.MethodPut, "/api/users/"+student.ID, studentToken, map[string]interface{}{"roles": []string{user.RoleAdmin}}))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admins cannot delete themselves", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodDelete, "/api/users/"+admin.ID, adminToken, nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		rec = app.do(newRequest(http.MethodDelete, "/api/users/"+student.ID, adminToken, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func Test_metrics(t *testing.T) {
	app := setup(t)
	app.do(newPageRequest(http.MethodGet, "/dashboard", nil))

	rec := app.do(newRequest(http.MethodGet, "/metrics", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `academia_guard_decisions_total{guard="auth",phase="unauthorized"} 1`)
	assert.Contains(t, body, `academia_guard_redirects_total{guard="auth",path="/auth/login"} 1`)
}
