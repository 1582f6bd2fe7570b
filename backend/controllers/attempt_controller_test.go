package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"traintrack/backend/models"
	"traintrack/backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradedSession spins up a training with the worked two-question example
// (passMark=2, Q1 correct=true, Q2 correct=false), one enrolled trainee and
// an active session. Question ids are 1 and 2 on the fresh database.
func gradedSession(t *testing.T, env *testEnv) (sessionID uint, trainee *models.User) {
	t.Helper()

	_, hseToken := env.staff(t, models.RoleHSE, "hse@example.com")
	facilitator, _ := env.staff(t, models.RoleFacilitator, "fac@example.com")
	trainingID := createTraining(t, env, hseToken, 2)
	publishQuestions(t, env, hseToken, trainingID, []map[string]interface{}{
		{"questionText": "Fire needs oxygen", "correctAnswer": true},
		{"questionText": "Water puts out oil fires", "correctAnswer": false},
	})

	trainee = env.trainee(t, "Asha", "0700000001")
	sessionID = createSession(t, env, hseToken, trainingID, facilitator.ID, trainee.ID)
	startSession(t, env, hseToken, sessionID)
	return sessionID, trainee
}

func TestSubmitAttemptWorkedExample(t *testing.T) {
	env := newTestEnv(t)
	sessionID, _ := gradedSession(t, env)

	// First submission: both answers correct.
	resp, body := env.request(t, "POST", fmt.Sprintf("/api/sessions/%d/attempts", sessionID), "",
		map[string]interface{}{
			"phoneNumber": "0700000001",
			"answers": []map[string]interface{}{
				{"question": 1, "selectedAnswer": true},
				{"question": 2, "selectedAnswer": false},
			},
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "submit failed: %v", body)
	d := data(t, body)
	assert.EqualValues(t, 2, d["score"])
	assert.Equal(t, models.AttemptPassed, d["status"])
	assert.EqualValues(t, 1, d["attemptNumber"])

	// Retake: one wrong, fails, attemptNumber increments.
	resp, body = env.request(t, "POST", fmt.Sprintf("/api/sessions/%d/attempts", sessionID), "",
		map[string]interface{}{
			"phoneNumber": "0700000001",
			"answers": []map[string]interface{}{
				{"question": 1, "selectedAnswer": false},
				{"question": 2, "selectedAnswer": false},
			},
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	d = data(t, body)
	assert.EqualValues(t, 1, d["score"])
	assert.Equal(t, models.AttemptFailed, d["status"])
	assert.EqualValues(t, 2, d["attemptNumber"])

	// Both attempts persist as independent records.
	var attempts []models.Attempt
	require.NoError(t, env.db.Order("attempt_number").Find(&attempts).Error)
	require.Len(t, attempts, 2)
	assert.Equal(t, models.AttemptPassed, attempts[0].Status)
	assert.Equal(t, models.AttemptFailed, attempts[1].Status)
}

func TestSubmitAttemptTolerantParsing(t *testing.T) {
	env := newTestEnv(t)
	sessionID, _ := gradedSession(t, env)

	// Heterogeneous clients: string ids, alias keys, string booleans.
	resp, body := env.request(t, "POST", fmt.Sprintf("/api/sessions/%d/attempts", sessionID), "",
		map[string]interface{}{
			"phoneNumber": "0700000001",
			"answers": []map[string]interface{}{
				{"questionId": "1", "answer": "t"},
				{"question_id": 2, "choice": "0"},
			},
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	d := data(t, body)
	assert.EqualValues(t, 2, d["score"])
	assert.Equal(t, models.AttemptPassed, d["status"])
}

func TestSubmitAttemptValidation(t *testing.T) {
	env := newTestEnv(t)
	sessionID, _ := gradedSession(t, env)

	t.Run("empty answers", func(t *testing.T) {
		resp, _ := env.request(t, "POST", fmt.Sprintf("/api/sessions/%d/attempts", sessionID), "",
			map[string]interface{}{"phoneNumber": "0700000001", "answers": []map[string]interface{}{}})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("unknown session", func(t *testing.T) {
		resp, _ := env.request(t, "POST", "/api/sessions/9999/attempts", "",
			map[string]interface{}{"phoneNumber": "0700000001",
				"answers": []map[string]interface{}{{"question": 1, "selectedAnswer": true}}})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("non-enrolled trainee", func(t *testing.T) {
		env.trainee(t, "Outsider", "0700000099")
		resp, _ := env.request(t, "POST", fmt.Sprintf("/api/sessions/%d/attempts", sessionID), "",
			map[string]interface{}{"phoneNumber": "0700000099",
				"answers": []map[string]interface{}{{"question": 1, "selectedAnswer": true}}})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestSubmitAttemptRequiresActiveSession(t *testing.T) {
	env := newTestEnv(t)
	sessionID, _ := gradedSession(t, env)

	_, hseToken := env.staff(t, models.RoleHSE, "hse2@example.com")
	resp, _ := env.request(t, "POST", fmt.Sprintf("/api/sessions/%d/end", sessionID), hseToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.request(t, "POST", fmt.Sprintf("/api/sessions/%d/attempts", sessionID), "",
		map[string]interface{}{"phoneNumber": "0700000001",
			"answers": []map[string]interface{}{{"question": 1, "selectedAnswer": true}}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSubmitAttemptGradesAgainstFrozenSet(t *testing.T) {
	env := newTestEnv(t)
	sessionID, _ := gradedSession(t, env)

	// Republish with flipped answers; the in-flight session must keep
	// grading against its frozen version.
	var hse models.User
	require.NoError(t, env.db.Where("role = ?", models.RoleHSE).First(&hse).Error)
	hseToken, err := utils.GenerateJWTToken(&hse, env.cfg)
	require.NoError(t, err)

	var session models.Session
	require.NoError(t, env.db.First(&session, sessionID).Error)
	publishQuestions(t, env, hseToken, session.TrainingID, []map[string]interface{}{
		{"questionText": "Fire needs oxygen", "correctAnswer": false},
	})

	resp, body := env.request(t, "POST", fmt.Sprintf("/api/sessions/%d/attempts", sessionID), "",
		map[string]interface{}{
			"phoneNumber": "0700000001",
			"answers": []map[string]interface{}{
				{"question": 1, "selectedAnswer": true},
				{"question": 2, "selectedAnswer": false},
			},
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	d := data(t, body)
	assert.EqualValues(t, 2, d["score"])
	assert.Equal(t, models.AttemptPassed, d["status"])
}

func TestSubmitAttemptWithSessionToken(t *testing.T) {
	env := newTestEnv(t)
	sessionID, _ := gradedSession(t, env)

	resp, body := env.request(t, "POST", fmt.Sprintf("/api/sessions/%d/login", sessionID), "",
		map[string]interface{}{"phoneNumber": "0700000001"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := data(t, body)["token"].(string)

	// Authenticated trainee identity wins; no phone number in the body.
	resp, body = env.request(t, "POST", fmt.Sprintf("/api/sessions/%d/attempts", sessionID), token,
		map[string]interface{}{
			"answers": []map[string]interface{}{
				{"question": 1, "selectedAnswer": true},
				{"question": 2, "selectedAnswer": false},
			},
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, models.AttemptPassed, data(t, body)["status"])
}

func TestSessionTokenScopedToIssuingSession(t *testing.T) {
	env := newTestEnv(t)
	sessionA, trainee := gradedSession(t, env)

	var a models.Session
	require.NoError(t, env.db.First(&a, sessionA).Error)
	var hse models.User
	require.NoError(t, env.db.Where("role = ?", models.RoleHSE).First(&hse).Error)
	hseToken, err := utils.GenerateJWTToken(&hse, env.cfg)
	require.NoError(t, err)

	sessionB := createSession(t, env, hseToken, a.TrainingID, a.FacilitatorID, trainee.ID)
	startSession(t, env, hseToken, sessionB)

	resp, body := env.request(t, "POST", fmt.Sprintf("/api/sessions/%d/login", sessionA), "",
		map[string]interface{}{"phoneNumber": "0700000001"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := data(t, body)["token"].(string)

	// Enrolled in both sessions, but the token only opens the session it was
	// issued for.
	resp, _ = env.request(t, "POST", fmt.Sprintf("/api/sessions/%d/attempts", sessionB), token,
		map[string]interface{}{
			"answers": []map[string]interface{}{{"question": 1, "selectedAnswer": true}},
		})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.request(t, "POST", fmt.Sprintf("/api/sessions/%d/attempts", sessionA), token,
		map[string]interface{}{
			"answers": []map[string]interface{}{{"question": 1, "selectedAnswer": true}},
		})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestSessionResults(t *testing.T) {
	env := newTestEnv(t)
	sessionID, _ := gradedSession(t, env)

	submit := func(answers []map[string]interface{}) {
		resp, _ := env.request(t, "POST", fmt.Sprintf("/api/sessions/%d/attempts", sessionID), "",
			map[string]interface{}{"phoneNumber": "0700000001", "answers": answers})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	submit([]map[string]interface{}{{"question": 1, "selectedAnswer": true}, {"question": 2, "selectedAnswer": false}})
	submit([]map[string]interface{}{{"question": 1, "selectedAnswer": false}, {"question": 2, "selectedAnswer": true}})

	var facilitator models.User
	require.NoError(t, env.db.Where("role = ?", models.RoleFacilitator).First(&facilitator).Error)
	facToken, err := utils.GenerateJWTToken(&facilitator, env.cfg)
	require.NoError(t, err)

	resp, body := env.request(t, "GET", fmt.Sprintf("/api/sessions/%d/results", sessionID), facToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := data(t, body)
	summary := d["summary"].(map[string]interface{})
	assert.EqualValues(t, 2, summary["totalAttempts"])
	assert.EqualValues(t, 1, summary["passed"])
	assert.EqualValues(t, 1, summary["failed"])
	assert.EqualValues(t, 1, summary["uniqueTrainees"])

	// Results are reachable by a facilitator token: the permitted-role set
	// uses the same lowercase enum as issued tokens.
	_, otherToken := env.staff(t, models.RoleFacilitator, "other@example.com")
	resp, _ = env.request(t, "GET", fmt.Sprintf("/api/sessions/%d/results", sessionID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestTraineeHistory(t *testing.T) {
	env := newTestEnv(t)
	sessionID, trainee := gradedSession(t, env)

	resp, _ := env.request(t, "POST", fmt.Sprintf("/api/sessions/%d/attempts", sessionID), "",
		map[string]interface{}{"phoneNumber": "0700000001",
			"answers": []map[string]interface{}{{"question": 1, "selectedAnswer": true}, {"question": 2, "selectedAnswer": false}}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Trainees only see their own history.
	other := env.trainee(t, "Other", "0700000002")
	otherToken, err := utils.GenerateJWTToken(other, env.cfg)
	require.NoError(t, err)
	resp, _ = env.request(t, "GET", fmt.Sprintf("/api/trainees/%d/history", trainee.ID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, hrToken := env.staff(t, models.RoleHR, "hr@example.com")
	resp, body := env.request(t, "GET", fmt.Sprintf("/api/trainees/%d/history", trainee.ID), hrToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := data(t, body)
	attempts := d["attempts"].([]interface{})
	require.Len(t, attempts, 1)
	entry := attempts[0].(map[string]interface{})
	assert.Equal(t, "Fire Safety", entry["training"])
	assert.EqualValues(t, 2, entry["questionSetVersion"])
	assert.EqualValues(t, 1, entry["attemptNumber"])
}
