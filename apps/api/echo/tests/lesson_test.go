package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eslclass/core/lesson"
	"github.com/trezcool/eslclass/tests"
)

func Test_lessonApi(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateTeacher(t, usrRepo, "Ms Wanjiru", "wanjiru@school.test")
	other := testutil.CreateTeacher(t, usrRepo, "Mr Otieno", "otieno@school.test")
	student := testutil.CreateStudent(t, usrRepo, "Juma", "juma@school.test")
	teacherToken := getToken(t, teacher)

	create := func(t *testing.T, body string) lesson.Plan {
		req, rec := newAuthRequest(http.MethodPost, "/api/lessons", teacherToken, []byte(body))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var p lesson.Plan
		decode(t, rec, &p)
		return p
	}

	t.Run("create", func(t *testing.T) {
		tests := []httpTest{
			{
				name: "students cannot plan", token: getToken(t, student), body: []byte(`{"title": "Greetings"}`), wantCode: http.StatusForbidden,
				wantData: marchallObj(t, httpErr{Error: "only teachers can manage lesson plans"}),
			},
			{
				name: "title required", token: teacherToken, body: []byte(`{"level": "beginner"}`), wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodPost, "/api/lessons", tt.token, tt.body)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	greetings := create(t, `{
		"title": "Greetings",
		"level": "Beginner",
		"objectives": ["say hello", " "],
		"activities": [
			{"name": "Warm up", "type": "warm-up", "duration": 10},
			{"name": "Role play", "type": "practice", "duration": 25}
		]
	}`)
	assert.Equal(t, 35, greetings.Duration)
	assert.Equal(t, []string{"say hello"}, greetings.Objectives)
	assert.Equal(t, []string{}, greetings.Materials)
	assert.Equal(t, 0, greetings.TimesUsed)
	assert.False(t, greetings.LastUsed.Valid)

	travel := create(t, `{"title": "Travel", "level": "advanced", "duration": 50}`)
	path := "/api/lessons/" + greetings.ID

	t.Run("list", func(t *testing.T) {
		tests := []struct {
			name    string
			path    string
			token   string
			wantIDs []string
		}{
			{name: "all", path: "/api/lessons", token: teacherToken, wantIDs: []string{travel.ID, greetings.ID}},
			{name: "by level", path: "/api/lessons?level=ADVANCED", token: teacherToken, wantIDs: []string{travel.ID}},
			{name: "someone else's plans are hidden", path: "/api/lessons", token: getToken(t, other), wantIDs: []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
				app.ServeHTTP(rec, req)
				require.Equal(t, http.StatusOK, rec.Code)

				var plans []lesson.Plan
				decode(t, rec, &plans)
				ids := make([]string, 0, len(plans))
				for _, p := range plans {
					ids = append(ids, p.ID)
				}
				assert.Equal(t, tt.wantIDs, ids)
			})
		}
	})

	notFound := marchallObj(t, httpErr{Error: "lesson plan not found"})
	tests := []httpTest{
		{name: "retrieve", method: http.MethodGet, path: path, token: teacherToken, wantCode: http.StatusOK, wantData: marchallObj(t, greetings)},
		{name: "other teacher", method: http.MethodGet, path: path, token: getToken(t, other), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "unknown", method: http.MethodGet, path: "/api/lessons/nope", token: teacherToken, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "other teacher cannot update", method: http.MethodPut, path: path, token: getToken(t, other),
			body: []byte(`{"title": "Mine"}`), wantCode: http.StatusNotFound, wantData: notFound,
		},
		{
			name: "invalid level", method: http.MethodPut, path: path, token: teacherToken,
			body: []byte(`{"level": "expert"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "update", method: http.MethodPut, path: path, token: teacherToken,
			body: []byte(`{"notes": "bring flashcards", "materials": ["flashcards"]}`), wantCode: http.StatusOK,
		},
		{name: "use", method: http.MethodPost, path: path + "/use", token: teacherToken, wantCode: http.StatusOK, extra: 1},
		{name: "use again", method: http.MethodPost, path: path + "/use", token: teacherToken, wantCode: http.StatusOK, extra: 2},
		{name: "other teacher cannot use", method: http.MethodPost, path: path + "/use", token: getToken(t, other), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "other teacher cannot delete", method: http.MethodDelete, path: path, token: getToken(t, other), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "delete", method: http.MethodDelete, path: path, token: teacherToken, wantCode: http.StatusNoContent},
		{name: "deleted", method: http.MethodGet, path: path, token: teacherToken, wantCode: http.StatusNotFound, wantData: notFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode != http.StatusOK || tt.method == http.MethodGet {
				return
			}
			var p lesson.Plan
			decode(t, rec, &p)
			assert.Equal(t, "Greetings", p.Title)
			assert.Equal(t, "bring flashcards", p.Notes)
			assert.Equal(t, []string{"flashcards"}, p.Materials)
			assert.Equal(t, 35, p.Duration)
			if used, ok := tt.extra.(int); ok {
				assert.Equal(t, used, p.TimesUsed)
				assert.True(t, p.LastUsed.Valid)
			}
		})
	}
}

func Test_lessonApi_progress(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateTeacher(t, usrRepo, "Ms Wanjiru", "wanjiru@school.test")
	other := testutil.CreateTeacher(t, usrRepo, "Mr Otieno", "otieno@school.test")
	juma := testutil.CreateStudent(t, usrRepo, "Juma", "juma@school.test")
	amina := testutil.CreateStudent(t, usrRepo, "Amina", "amina@school.test")
	cls := testutil.CreateClass(t, clsRepo, teacher, "Beginners A", "ABC123", 10)
	testutil.Enroll(t, clsRepo, cls, juma)
	jumaToken := getToken(t, juma)

	req, rec := newAuthRequest(http.MethodPost, "/api/lessons", getToken(t, teacher), []byte(`{
		"title": "At the market",
		"vocabulary": [
			{"word": " apple ", "translation": "tofaa", "example": "I buy an apple."},
			{"word": "price", "pronunciation": "/praɪs/"}
		]
	}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var plan lesson.Plan
	decode(t, rec, &plan)
	assert.Equal(t, []lesson.VocabularyItem{
		{Word: "apple", Translation: "tofaa", Example: "I buy an apple."},
		{Word: "price", Pronunciation: "/praɪs/"},
	}, plan.Vocabulary)
	hidden := testutil.CreateTeacher(t, usrRepo, "Mr Hidden", "hidden@school.test")
	req, rec = newAuthRequest(http.MethodPost, "/api/lessons", getToken(t, hidden), []byte(`{"title": "Secret"}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var secret lesson.Plan
	decode(t, rec, &secret)

	t.Run("vocabulary word required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/lessons", getToken(t, teacher), []byte(`{"title": "x", "vocabulary": [{"translation": "nothing"}]}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("students read their teachers' plans", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/lessons", jumaToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, plan)}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/api/lessons", getToken(t, amina))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/api/lessons/"+plan.ID, jumaToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, plan)}, rec)

		notFound := marchallObj(t, httpErr{Error: "lesson plan not found"})
		req, rec = newAuthRequest(http.MethodPut, "/api/lessons/"+plan.ID, jumaToken, []byte(`{"title": "Mine"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: notFound}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/api/lessons/"+plan.ID, getToken(t, amina))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: notFound}, rec)
	})

	jumaPath := "/api/students/" + juma.ID + "/progress"
	tests := []httpTest{
		{name: "Auth required", path: jumaPath, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "teachers cannot complete", path: jumaPath, token: getToken(t, teacher), wantCode: http.StatusForbidden,
			body:     []byte(`{"lesson_id": "` + plan.ID + `", "score": 80}`),
			wantData: marchallObj(t, httpErr{Error: "only students can complete lessons"}),
		},
		{
			name: "someone else's progress", path: jumaPath, token: getToken(t, amina), wantCode: http.StatusForbidden,
			body:     []byte(`{"lesson_id": "` + plan.ID + `", "score": 80}`),
			wantData: marchallObj(t, httpErr{Error: "students can only record their own progress"}),
		},
		{
			name: "score required", path: jumaPath, token: jumaToken, wantCode: http.StatusBadRequest,
			body:     []byte(`{"lessonId": "` + plan.ID + `"}`),
			wantData: marchallObj(t, map[string]string{"score": "this field is required"}),
		},
		{
			name: "score out of range", path: jumaPath, token: jumaToken, wantCode: http.StatusBadRequest,
			body:     []byte(`{"lessonId": "` + plan.ID + `", "score": 120}`),
			wantData: marchallObj(t, map[string]string{"score": "score must be between 0 and 100"}),
		},
		{
			name: "invisible lesson", path: jumaPath, token: jumaToken, wantCode: http.StatusNotFound,
			body:     []byte(`{"lessonId": "` + secret.ID + `", "score": 80}`),
			wantData: marchallObj(t, httpErr{Error: "lesson plan not found"}),
		},
		{
			name: "completed (camelCase body)", path: jumaPath, token: jumaToken, wantCode: http.StatusCreated,
			body: []byte(`{"lessonId": "` + plan.ID + `", "score": 80}`), extra: 80,
		},
		{
			name: "completed again", path: jumaPath, token: jumaToken, wantCode: http.StatusCreated,
			body: []byte(`{"lesson_id": "` + plan.ID + `", "score": 100}`), extra: 100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if score, ok := tt.extra.(int); ok {
				var c lesson.Completion
				decode(t, rec, &c)
				assert.Equal(t, juma.ID, c.StudentID)
				assert.Equal(t, plan.ID, c.LessonID)
				assert.Equal(t, score, c.Score)
				assert.False(t, c.CompletedAt.IsZero())
			}
		})
	}

	t.Run("progress", func(t *testing.T) {
		for _, tt := range []struct {
			name     string
			token    string
			wantCode int
		}{
			{name: "student", token: jumaToken, wantCode: http.StatusOK},
			{name: "their teacher", token: getToken(t, teacher), wantCode: http.StatusOK},
			{name: "other teacher", token: getToken(t, other), wantCode: http.StatusForbidden},
			{name: "other student", token: getToken(t, amina), wantCode: http.StatusForbidden},
		} {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodGet, jumaPath, tt.token)
				app.ServeHTTP(rec, req)
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				if tt.wantCode != http.StatusOK {
					checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: marchallObj(t, httpErr{Error: "access denied"})}, rec)
					return
				}

				var p lesson.Progress
				decode(t, rec, &p)
				assert.Equal(t, []string{plan.ID}, p.CompletedLessons)
				require.Len(t, p.Scores, 2)
				assert.Equal(t, 80, p.Scores[0].Score)
				assert.Equal(t, 100, p.Scores[1].Score)
				assert.Equal(t, 90.0, p.AverageScore)
			})
		}

		req, rec := newAuthRequest(http.MethodGet, "/api/students/"+amina.ID+"/progress", getToken(t, amina))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: []byte(`{"completed_lessons": [], "scores": [], "average_score": 0}`),
		}, rec)
	})
}
