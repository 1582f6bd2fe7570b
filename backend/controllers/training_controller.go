package controllers

import (
	"errors"
	"strconv"

	"traintrack/backend/config"
	"traintrack/backend/grading"
	"traintrack/backend/middleware"
	"traintrack/backend/models"
	"traintrack/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TrainingController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewTrainingController(db *gorm.DB, cfg *config.Config) *TrainingController {
	return &TrainingController{DB: db, Cfg: cfg}
}

type CreateTrainingRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Department  string `json:"department"`
	PassMark    int    `json:"passMark" validate:"required,min=1"`
}

// CreateTraining creates a training together with its empty question set at
// version 1 and links the two, all in one transaction.
func (tc *TrainingController) CreateTraining(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	var input CreateTrainingRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if details := utils.ValidateStruct(&input); details != nil {
		return utils.ValidationFailed(c, "Invalid training payload", details)
	}

	training := models.Training{
		Title:          input.Title,
		Description:    input.Description,
		Department:     input.Department,
		PassMark:       input.PassMark,
		CreatedByID:    actor.ID,
		CurrentVersion: 1,
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&training).Error; err != nil {
			return err
		}
		set := models.QuestionSet{
			TrainingID:  training.ID,
			Version:     1,
			CreatedByID: actor.ID,
		}
		if err := tx.Create(&set).Error; err != nil {
			return err
		}
		training.CurrentQuestionSetID = set.ID
		return tx.Model(&training).Update("current_question_set_id", set.ID).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not create training")
	}

	utils.Audit(tc.DB, actor.ID, "training.create", fiber.Map{"trainingId": training.ID})
	return utils.Created(c, training, "Training created")
}

type PublishQuestionsRequest struct {
	Questions []QuestionInput `json:"questions"`
}

type QuestionInput struct {
	QuestionText  string      `json:"questionText"`
	CorrectAnswer interface{} `json:"correctAnswer"`
}

// PublishQuestions creates the submitted questions as new immutable entities,
// snapshots them into a question set at currentVersion+1 and repoints the
// training, atomically. Previously published sets are never touched, which
// keeps existing sessions grading against their frozen version.
func (tc *TrainingController) PublishQuestions(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	training, ok := tc.findTraining(c)
	if !ok {
		return nil
	}

	var input PublishQuestionsRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if len(input.Questions) == 0 {
		return utils.ValidationFailed(c, "Questions list cannot be empty")
	}

	questions := make([]models.Question, 0, len(input.Questions))
	for i, q := range input.Questions {
		if q.QuestionText == "" {
			return utils.ValidationFailed(c, "Question "+strconv.Itoa(i+1)+" is missing questionText")
		}
		answer, ok := q.CorrectAnswer.(bool)
		if !ok {
			return utils.ValidationFailed(c, "Question "+strconv.Itoa(i+1)+": correctAnswer must be a boolean")
		}
		questions = append(questions, models.Question{
			TrainingID:    training.ID,
			QuestionText:  q.QuestionText,
			CorrectAnswer: answer,
		})
	}

	var set models.QuestionSet
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		set = models.QuestionSet{
			TrainingID:  training.ID,
			Version:     training.CurrentVersion + 1,
			CreatedByID: actor.ID,
		}
		if err := tx.Create(&set).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].QuestionSetID = set.ID
		}
		if err := tx.Create(&questions).Error; err != nil {
			return err
		}
		return tx.Model(training).Updates(map[string]interface{}{
			"current_question_set_id": set.ID,
			"current_version":         set.Version,
		}).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not publish questions")
	}

	training.CurrentQuestionSetID = set.ID
	training.CurrentVersion = set.Version

	utils.Audit(tc.DB, actor.ID, "training.publish", fiber.Map{
		"trainingId": training.ID,
		"version":    set.Version,
		"questions":  len(questions),
	})
	return utils.Created(c, fiber.Map{
		"questionSet":    set,
		"currentVersion": training.CurrentVersion,
	}, "Questions published")
}

func (tc *TrainingController) ListTrainings(c *fiber.Ctx) error {
	var trainings []models.Training
	if err := tc.DB.Order("created_at DESC").Find(&trainings).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return utils.Success(c, fiber.StatusOK, trainings)
}

func (tc *TrainingController) GetTraining(c *fiber.Ctx) error {
	training, ok := tc.findTraining(c)
	if !ok {
		return nil
	}

	var set models.QuestionSet
	if err := tc.DB.Preload("Questions").First(&set, training.CurrentQuestionSetID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"training":           training,
		"currentQuestionSet": set,
		"defaultPassMark":    grading.DefaultPassMark(len(set.Questions)),
	})
}

// GetQuestionSet returns a specific published version. Old versions stay
// retrievable and unchanged.
func (tc *TrainingController) GetQuestionSet(c *fiber.Ctx) error {
	training, ok := tc.findTraining(c)
	if !ok {
		return nil
	}

	version, err := strconv.Atoi(c.Params("version"))
	if err != nil {
		return utils.BadRequest(c, "Invalid version")
	}

	var set models.QuestionSet
	if err := tc.DB.Preload("Questions").
		Where("training_id = ? AND version = ?", training.ID, version).
		First(&set).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Question set version not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	return utils.Success(c, fiber.StatusOK, set)
}

type UpdateTrainingRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Department  string `json:"department"`
	PassMark    *int   `json:"passMark"`
}

func (tc *TrainingController) UpdateTraining(c *fiber.Ctx) error {
	training, ok := tc.findTraining(c)
	if !ok {
		return nil
	}

	var input UpdateTrainingRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if input.Title != "" {
		training.Title = input.Title
	}
	if input.Description != "" {
		training.Description = input.Description
	}
	if input.Department != "" {
		training.Department = input.Department
	}
	if input.PassMark != nil {
		if *input.PassMark < 0 {
			return utils.ValidationFailed(c, "passMark cannot be negative")
		}
		training.PassMark = *input.PassMark
	}

	if err := tc.DB.Save(training).Error; err != nil {
		return utils.InternalServerError(c, "Could not update training")
	}
	return utils.Success(c, fiber.StatusOK, training, "Training updated")
}

// DeleteTraining refuses to delete a training any session still references.
func (tc *TrainingController) DeleteTraining(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	training, ok := tc.findTraining(c)
	if !ok {
		return nil
	}

	var sessions int64
	if err := tc.DB.Model(&models.Session{}).
		Where("training_id = ?", training.ID).
		Count(&sessions).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if sessions > 0 {
		return utils.Conflict(c, "Training has sessions and cannot be deleted")
	}

	if err := tc.DB.Delete(training).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete training")
	}

	utils.Audit(tc.DB, actor.ID, "training.delete", fiber.Map{"trainingId": training.ID})
	return utils.Success(c, fiber.StatusOK, nil, "Training deleted")
}

// findTraining resolves the :id param. On failure the response has already
// been written and ok is false.
func (tc *TrainingController) findTraining(c *fiber.Ctx) (*models.Training, bool) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid training ID")
		return nil, false
	}

	var training models.Training
	if err := tc.DB.First(&training, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Training not found")
		} else {
			utils.InternalServerError(c, "Could not query database")
		}
		return nil, false
	}
	return &training, true
}
