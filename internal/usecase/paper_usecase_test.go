package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/winisorts/classifier-api/internal/domain/entity"
	"github.com/winisorts/classifier-api/internal/domain/repository"
	"github.com/winisorts/classifier-api/internal/domain/service"
)

// MockPaperRepository is a mock implementation of PaperRepository
type MockPaperRepository struct {
	mock.Mock
}

func (m *MockPaperRepository) Create(ctx context.Context, paper *entity.Paper) error {
	args := m.Called(ctx, paper)
	return args.Error(0)
}

func (m *MockPaperRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Paper, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Paper), args.Error(1)
}

func (m *MockPaperRepository) List(ctx context.Context, filter repository.PaperFilter, limit, offset int) ([]*entity.Paper, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entity.Paper), args.Get(1).(int64), args.Error(2)
}

// MockClassifyUsecase is a mock implementation of ClassifyUsecase
type MockClassifyUsecase struct {
	mock.Mock
}

func (m *MockClassifyUsecase) Classify(ctx context.Context, abstract string) (*service.Classification, error) {
	args := m.Called(ctx, abstract)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Classification), args.Error(1)
}

func sampleClassification() *service.Classification {
	return &service.Classification{
		PrimaryCategory:     service.LabelScore{Label: "Computer Science", Confidence: 0.88},
		ResearchMethodology: service.LabelScore{Label: "Experimental", Confidence: 0.71},
		Categories: []service.LabelScore{
			{Label: "Machine Learning", Confidence: 0.93},
			{Label: "Bioinformatics", Confidence: 0.52},
		},
	}
}

func samplePaper() *entity.Paper {
	p := entity.NewPaper("Folding with transformers", "We fold proteins.", "ada", sampleClassification())
	p.CreatedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return p
}

func TestPaperUsecase_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockRepo := new(MockPaperRepository)
		mockClassifier := new(MockClassifyUsecase)
		uc := NewPaperUsecase(mockRepo, mockClassifier)

		mockClassifier.On("Classify", mock.Anything, "We fold proteins.").Return(sampleClassification(), nil)
		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Paper")).Return(nil)

		output, err := uc.Create(context.Background(), &CreatePaperInput{
			Title:       "Folding with transformers",
			Abstract:    "We fold proteins.",
			SubmittedBy: "ada",
		})

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, output.PaperID)
		assert.Equal(t, "Folding with transformers", output.Title)
		assert.Equal(t, "Computer Science", output.PrimaryCategory)
		assert.Equal(t, "Experimental", output.ResearchMethodology)
		assert.Equal(t, []string{"Machine Learning", "Bioinformatics"}, output.Categories)
		assert.Equal(t, 0.93, output.CategoryScores["Machine Learning"])
		mockRepo.AssertExpectations(t)
		mockClassifier.AssertExpectations(t)
	})

	t.Run("untitled paper", func(t *testing.T) {
		mockRepo := new(MockPaperRepository)
		mockClassifier := new(MockClassifyUsecase)
		uc := NewPaperUsecase(mockRepo, mockClassifier)

		mockClassifier.On("Classify", mock.Anything, mock.Anything).Return(sampleClassification(), nil)
		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Paper")).Return(nil)

		output, err := uc.Create(context.Background(), &CreatePaperInput{Abstract: "text"})

		require.NoError(t, err)
		assert.Equal(t, entity.UntitledPaper, output.Title)
	})

	t.Run("empty abstract", func(t *testing.T) {
		mockRepo := new(MockPaperRepository)
		mockClassifier := new(MockClassifyUsecase)
		uc := NewPaperUsecase(mockRepo, mockClassifier)

		output, err := uc.Create(context.Background(), &CreatePaperInput{Title: "t", Abstract: "  "})

		assert.Nil(t, output)
		assert.ErrorIs(t, err, ErrInvalidRequest)
		mockClassifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("classification error", func(t *testing.T) {
		mockRepo := new(MockPaperRepository)
		mockClassifier := new(MockClassifyUsecase)
		uc := NewPaperUsecase(mockRepo, mockClassifier)

		mockClassifier.On("Classify", mock.Anything, mock.Anything).Return(nil, ErrInference)

		output, err := uc.Create(context.Background(), &CreatePaperInput{Abstract: "text"})

		assert.Nil(t, output)
		assert.ErrorIs(t, err, ErrInference)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("repository error", func(t *testing.T) {
		mockRepo := new(MockPaperRepository)
		mockClassifier := new(MockClassifyUsecase)
		uc := NewPaperUsecase(mockRepo, mockClassifier)

		mockClassifier.On("Classify", mock.Anything, mock.Anything).Return(sampleClassification(), nil)
		mockRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db error"))

		output, err := uc.Create(context.Background(), &CreatePaperInput{Abstract: "text"})

		assert.Error(t, err)
		assert.Nil(t, output)
	})
}

func TestPaperUsecase_GetByID(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockRepo := new(MockPaperRepository)
		uc := NewPaperUsecase(mockRepo, nil)
		paper := samplePaper()

		mockRepo.On("GetByID", mock.Anything, paper.ID).Return(paper, nil)

		output, err := uc.GetByID(context.Background(), paper.ID)

		require.NoError(t, err)
		assert.Equal(t, paper.ID, output.PaperID)
		assert.Equal(t, "2025-03-01T12:00:00Z", output.CreatedAt)
		mockRepo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo := new(MockPaperRepository)
		uc := NewPaperUsecase(mockRepo, nil)
		id := uuid.New()

		mockRepo.On("GetByID", mock.Anything, id).Return(nil, nil)

		output, err := uc.GetByID(context.Background(), id)

		assert.ErrorIs(t, err, ErrPaperNotFound)
		assert.Nil(t, output)
	})

	t.Run("repository error", func(t *testing.T) {
		mockRepo := new(MockPaperRepository)
		uc := NewPaperUsecase(mockRepo, nil)
		id := uuid.New()

		mockRepo.On("GetByID", mock.Anything, id).Return(nil, errors.New("db error"))

		output, err := uc.GetByID(context.Background(), id)

		assert.Error(t, err)
		assert.Nil(t, output)
	})
}

func TestPaperUsecase_List(t *testing.T) {
	t.Run("success with filters", func(t *testing.T) {
		mockRepo := new(MockPaperRepository)
		uc := NewPaperUsecase(mockRepo, nil)
		papers := []*entity.Paper{samplePaper(), samplePaper()}
		filter := repository.PaperFilter{
			PrimaryCategory:     "Computer Science",
			ResearchMethodology: "Experimental",
			Category:            "Machine Learning",
		}

		mockRepo.On("List", mock.Anything, filter, 10, 0).Return(papers, int64(2), nil)

		output, err := uc.List(context.Background(), &ListPapersInput{
			Discipline:  " Computer Science ",
			Methodology: "Experimental",
			Category:    "Machine Learning",
			Limit:       10,
		})

		require.NoError(t, err)
		assert.Len(t, output.Papers, 2)
		assert.Equal(t, int64(2), output.Total)
		assert.False(t, output.HasMore)
		mockRepo.AssertExpectations(t)
	})

	t.Run("with pagination - has more", func(t *testing.T) {
		mockRepo := new(MockPaperRepository)
		uc := NewPaperUsecase(mockRepo, nil)

		mockRepo.On("List", mock.Anything, repository.PaperFilter{}, 10, 0).Return([]*entity.Paper{samplePaper()}, int64(50), nil)

		output, err := uc.List(context.Background(), &ListPapersInput{Limit: 10})

		require.NoError(t, err)
		assert.True(t, output.HasMore)
	})

	t.Run("default limit when zero", func(t *testing.T) {
		mockRepo := new(MockPaperRepository)
		uc := NewPaperUsecase(mockRepo, nil)

		mockRepo.On("List", mock.Anything, repository.PaperFilter{}, 20, 0).Return([]*entity.Paper{}, int64(0), nil)

		output, err := uc.List(context.Background(), &ListPapersInput{})

		require.NoError(t, err)
		assert.Equal(t, 20, output.Limit)
		assert.NotNil(t, output.Papers)
	})

	t.Run("cap limit at 100", func(t *testing.T) {
		mockRepo := new(MockPaperRepository)
		uc := NewPaperUsecase(mockRepo, nil)

		mockRepo.On("List", mock.Anything, repository.PaperFilter{}, 100, 0).Return([]*entity.Paper{}, int64(0), nil)

		output, err := uc.List(context.Background(), &ListPapersInput{Limit: 500, Offset: -3})

		require.NoError(t, err)
		assert.Equal(t, 100, output.Limit)
		assert.Equal(t, 0, output.Offset)
	})

	t.Run("repository error", func(t *testing.T) {
		mockRepo := new(MockPaperRepository)
		uc := NewPaperUsecase(mockRepo, nil)

		mockRepo.On("List", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, int64(0), errors.New("db error"))

		output, err := uc.List(context.Background(), &ListPapersInput{})

		assert.Error(t, err)
		assert.Nil(t, output)
	})
}
