package tests

import (
	"bytes"
	"context"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eslclass/apps/api/echo"
	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/user"
	"github.com/trezcool/eslclass/services/email"
	"github.com/trezcool/eslclass/tests"
)

const strongPwd = "LolC@t123"

var resetLinkRegex = regexp.MustCompile(`/password-reset/([^/\s"<]+)/([^/\s"<]+)`)

func Test_authApi_register(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, usrRepo, "Taken", "", "taken@school.test", "", []string{user.RoleStudent}, true)

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": reqMsg, "email": reqMsg, "password": reqMsg, "role": reqMsg}),
		},
		{
			name: "unknown role", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.Signup{Name: "Amani", Email: "amani@school.test", Password: strongPwd, Role: "admin"}),
			wantData: marchallObj(t, map[string]string{"role": "role must be one of teacher or student"}),
		},
		{
			name: "weak password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.Signup{Name: "Amani", Email: "amani@school.test", Password: "Sh0rt!", Role: "teacher"}),
			wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
		{
			name: "email taken", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.Signup{Name: "Amani", Email: " TAKEN@school.test ", Password: strongPwd, Role: "student"}),
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name: "teacher", wantCode: http.StatusCreated,
			body:  marchallObj(t, user.Signup{Name: "Amani", Email: "amani@school.test", Password: strongPwd, Role: "teacher"}),
			extra: user.SignupTeacher,
		},
		{
			name: "student", wantCode: http.StatusCreated,
			body:  marchallObj(t, user.Signup{Name: "Baraka", Email: "baraka@school.test", Password: strongPwd, Role: "Student", Level: "advanced"}),
			extra: user.SignupStudent,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if role, ok := tt.extra.(string); ok {
				var resp struct {
					Token string                 `json:"token"`
					User  map[string]interface{} `json:"user"`
				}
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
				assert.Equal(t, role, resp.User["role"])

				usr, err := usrRepo.GetUserByEmail(context.Background(), resp.User["email"].(string))
				require.NoError(t, err)
				assert.NoError(t, usr.CheckPassword(strongPwd))
				assert.NotContains(t, rec.Body.String(), "password")
			}
		})
	}
}

func Test_authApi_login(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero_one", "hero@school.test", strongPwd, []string{user.RoleStudent}, true)
	testutil.CreateUser(t, usrRepo, "N Dog", "", "ndog@school.test", strongPwd, []string{user.RoleStudent}, false)

	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest, wantData: authFailed,
			body: marchallObj(t, echoapi.LoginRequest{Email: "nobody@school.test", Password: strongPwd}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest, wantData: authFailed,
			body: marchallObj(t, echoapi.LoginRequest{Email: student.Email, Password: "LolC@t124"}),
		},
		{
			name: "inactive account", wantCode: http.StatusForbidden,
			body:     marchallObj(t, echoapi.LoginRequest{Email: "ndog@school.test", Password: strongPwd}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "by email", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Email: "HERO@school.test", Password: strongPwd}),
		},
		{
			name: "by username", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Email: "hero_one", Password: strongPwd}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp echoapi.AuthResponse
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
				require.NotNil(t, resp.User)
				assert.Equal(t, student.ID, resp.User.ID)
				assert.False(t, resp.User.LastLogin.IsZero())
			}
		})
	}
}

func Test_authApi_me(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "", "hero@school.test", "", []string{user.RoleStudent}, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "", "ndog@school.test", "", []string{user.RoleStudent}, false)
	ghost := testutil.CreateUser(t, usrRepo, "Ghost", "", "ghost@school.test", "", []string{user.RoleStudent}, true)
	ghostToken := getToken(t, ghost)
	require.NoError(t, usrRepo.DeleteUsersByID(context.Background(), ghost.ID))

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Deleted user", token: ghostToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"})},
		{name: "OK", token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallObj(t, student)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/api/auth/me"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_refreshToken(t *testing.T) {
	app := setup(t)

	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@school.test", "", []string{user.RoleStudent}, false)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@school.test", "", []string{user.RoleStudent}, true)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   student.ID,
			Audience:  "Classroom",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * core.Conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		IsStudent:    student.IsStudent(),
		Roles:        student.Roles,
	}
	unrefreshableToken, err := echoapi.GenerateToken(unrefreshableClaims)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				var resp echoapi.AuthResponse
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
				assert.Nil(t, resp.User)
			}
		})
	}
}

func Test_authApi_resetPassword(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@school.test", "", []string{user.RoleStudent}, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@school.test", "", []string{user.RoleStudent}, false)
	successData := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	type extraTest struct {
		emailSent bool
		to        mail.Address
	}
	tests := []httpTest{
		{name: "required fields", wantCode: http.StatusBadRequest, wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "this field is required"})},
		{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "email must be a valid email address"}),
		},
		{
			name: "unknown email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol@test.com"}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "inactive account", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: naughty.Email}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "known email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: student.Email}),
			wantData: successData, extra: extraTest{emailSent: true, to: mail.Address{Name: student.Name, Address: student.Email}},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ClearSentMessages()

			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			extra, ok := tt.extra.(extraTest)
			if !ok {
				return
			}
			sent := emailsvc.SentMessages()
			if !extra.emailSent {
				assert.Empty(t, sent)
				return
			}
			require.Len(t, sent, 1)
			msg := sent[0]
			assert.Equal(t, extra.to, msg.To[0])
			assert.Contains(t, msg.TextContent, extra.to.Name)
			assert.Contains(t, msg.HTMLContent, extra.to.Name)
			assert.Regexp(t, resetLinkRegex, msg.TextContent)
			assert.Regexp(t, resetLinkRegex, msg.HTMLContent)
		})
	}
}

func Test_authApi_confirmPasswordReset(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@school.test", "lol", []string{user.RoleStudent}, true)

	// grab the link from the reset email
	req, rec := newRequest(http.MethodPost, "/api/auth/password-reset", marchallObj(t, echoapi.PasswordResetRequest{Email: student.Email}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	sent := emailsvc.SentMessages()
	require.Len(t, sent, 1)
	link := resetLinkRegex.FindStringSubmatch(sent[0].TextContent)
	require.Len(t, link, 3)
	validUID, validToken := link[1], link[2]
	assert.Equal(t, user.EncodeUID(student), validUID)

	reqMsg := "this field is required"
	invalidToken := marchallObj(t, user.ResetUserPassword{Token: "invalid token"})
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, user.ResetUserPassword{Token: reqMsg, UID: reqMsg, Password: reqMsg, PasswordConfirm: reqMsg}),
		},
		{
			name: "invalid pwd: min len", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "lol", PasswordConfirm: "lol"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must contain at least 8 characters"}),
		},
		{
			name: "invalid pwd: no whitespace", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "l o loll", PasswordConfirm: "l o loll"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must not contain whitespace"}),
		},
		{
			name: "invalid pwd: not all numeric", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "12345678", PasswordConfirm: "12345678"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password cannot be entirely numeric"}),
		},
		{
			name: "invalid pwd: complexity", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "lol12345", PasswordConfirm: "lol12345"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"}),
		},
		{
			name: "invalid uid", wantCode: http.StatusBadRequest, wantData: invalidToken,
			body: marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "bG9s", Password: strongPwd, PasswordConfirm: strongPwd}),
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest, wantData: invalidToken,
			body: marchallObj(t, user.ResetUserPassword{Token: "HE4TS-sigsig-sig", UID: validUID, Password: strongPwd, PasswordConfirm: strongPwd}),
		},
		{
			name: "valid token", wantCode: http.StatusOK,
			body:     marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: strongPwd, PasswordConfirm: strongPwd}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{
			name: "token used", wantCode: http.StatusBadRequest, wantData: invalidToken,
			body: marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: "N3w-LolC@t", PasswordConfirm: "N3w-LolC@t"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/password-reset-confirm"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				refreshed, err := usrRepo.GetUserByID(context.Background(), student.ID)
				require.NoError(t, err)
				assert.False(t, bytes.Equal(refreshed.PasswordHash, student.PasswordHash), "password was not updated")
				assert.NoError(t, refreshed.CheckPassword(strongPwd))
			}
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	app := setup(t)

	path := func(search string, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/api/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	usr1 := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "", nil, true)
	usr2 := testutil.CreateUser(t, usrRepo, "King", "user02", "king@test.cd", "", nil, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	principal := testutil.CreateUser(t, usrRepo, "Principal", "princip", "princip@test.cd", "", []string{user.RoleAdminPrincipal}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleStudent}, false)

	adminToken := getToken(t, admin)
	empty := marchallList(t)

	tests := []httpTest{
		{name: "Auth required", path: "/api/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/api/users", token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Get all", path: "/api/users", token: adminToken,
			wantData: marchallList(t, teacher, admin, usr1, naughty, principal, student, usr2),
		},
		{name: "search (unknown)", path: path("lol", nil), token: adminToken, wantData: empty},
		{name: "search=USE", path: path("USE", nil), token: adminToken, wantData: marchallList(t, usr1, student, usr2)},
		{name: "role (unknown)", path: path("", nil, "lol"), token: adminToken, wantData: empty},
		{name: "role=admin:", path: path("", nil, user.RoleAdmin), token: adminToken, wantData: marchallList(t, admin, principal)},
		{
			name: "role=teacher:,student:", path: path("", nil, user.RoleTeacher, user.RoleStudent),
			token: adminToken, wantData: marchallList(t, teacher, naughty, student),
		},
		{name: "is_active=false", path: path("", bPtr(false)), token: adminToken, wantData: marchallList(t, naughty)},
		{name: "search + role", path: path("e", bPtr(true), user.RoleStudent), token: adminToken, wantData: marchallList(t, student)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userCreate(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateTeacher(t, usrRepo, "Teacher", "teacher@test.cd")

	tests := []httpTest{
		{
			name: "Admin required", token: getToken(t, teacher), wantCode: http.StatusForbidden,
			body:     marchallObj(t, user.NewUser{Name: "New", Email: "new@test.cd", Password: strongPwd, PasswordConfirm: strongPwd}),
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "one of username or email", token: getToken(t, admin), wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{Name: "New", Password: strongPwd, PasswordConfirm: strongPwd}),
			wantData: marchallObj(t, map[string]string{
				"username": "one of username or email is required",
				"email":    "one of username or email is required",
			}),
		},
		{
			name: "cannot grant a higher role", token: getToken(t, admin), wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Name: "New", Email: "new@test.cd", Password: strongPwd, PasswordConfirm: strongPwd, Roles: []string{user.RoleAdminOwner}}),
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{
			name: "created", token: getToken(t, admin), wantCode: http.StatusCreated,
			body: marchallObj(t, user.NewUser{Name: "New", Email: "new@test.cd", Password: strongPwd, PasswordConfirm: strongPwd, Roles: []string{user.RoleTeacher}}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				usr, err := usrRepo.GetUserByEmail(context.Background(), "new@test.cd")
				require.NoError(t, err)
				assert.True(t, usr.IsTeacher())
			}
		})
	}
}

func Test_userApi_userDetail(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateStudent(t, usrRepo, "Hero", "hero@test.cd")
	other := testutil.CreateStudent(t, usrRepo, "Other", "other@test.cd")
	adminToken, studentToken := getToken(t, admin), getToken(t, student)

	renamed := student
	renamed.Name = "Super Hero"
	renamed.Level = user.LevelIntermediate

	notFound := marchallObj(t, httpErr{Error: "not found"})
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	tests := []httpTest{
		{name: "own profile", method: http.MethodGet, path: "/api/users/" + student.ID, token: studentToken, wantCode: http.StatusOK, wantData: marchallObj(t, student)},
		{name: "someone else's", method: http.MethodGet, path: "/api/users/" + other.ID, token: studentToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "admin reads anyone", method: http.MethodGet, path: "/api/users/" + other.ID, token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, other)},
		{name: "unknown id", method: http.MethodGet, path: "/api/users/nope", token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "student cannot change roles", method: http.MethodPut, path: "/api/users/" + student.ID, token: studentToken,
			body: []byte(`{"roles": ["admin:"]}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "student updates profile", method: http.MethodPut, path: "/api/users/" + student.ID, token: studentToken,
			body: []byte(`{"name": " Super Hero ", "level": "Intermediate"}`), wantCode: http.StatusOK,
			extra: renamed,
		},
		{name: "student cannot delete", method: http.MethodDelete, path: "/api/users/" + student.ID, token: studentToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "admin cannot delete self", method: http.MethodDelete, path: "/api/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "admin deletes", method: http.MethodDelete, path: "/api/users/" + other.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "roles", method: http.MethodGet, path: "/api/users/roles", token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if want, ok := tt.extra.(user.User); ok {
				var got user.User
				decode(t, rec, &got)
				assert.Equal(t, want.Name, got.Name)
				assert.Equal(t, want.Level, got.Level)
			}
		})
	}

	_, err := usrRepo.GetUserByID(context.Background(), other.ID)
	assert.Equal(t, user.ErrNotFound, err)
}

func Test_userApi_userDestroyMultiple(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	s1 := testutil.CreateStudent(t, usrRepo, "One", "one@test.cd")
	s2 := testutil.CreateStudent(t, usrRepo, "Two", "two@test.cd")
	token := getToken(t, admin)

	req, rec := newAuthRequest(http.MethodDelete, "/api/users?id="+s1.ID+"&id="+admin.ID, token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/api/users?"+strings.Join([]string{"id=" + s1.ID, "id=" + s2.ID}, "&"), token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	users, err := usrRepo.QueryUsers(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, admin.ID, users[0].ID)
}
