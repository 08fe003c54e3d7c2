package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"bloogle/internal/models"
	"bloogle/internal/repository"
)

const (
	maxTitleRunes       = 200
	maxDescriptionRunes = 20000
)

type BlogInput struct {
	Title       string
	Description string
	Image       *Upload
}

type BlogService struct {
	blogs  BlogStore
	saved  SavedStore
	users  UserStore
	images ImageSaver
	log    zerolog.Logger
}

func NewBlogService(blogs BlogStore, saved SavedStore, users UserStore, images ImageSaver, log zerolog.Logger) *BlogService {
	return &BlogService{
		blogs:  blogs,
		saved:  saved,
		users:  users,
		images: images,
		log:    log,
	}
}

func (s *BlogService) Feed(ctx context.Context, viewerID int64) ([]models.Blog, error) {
	return s.blogs.List(ctx, viewerID)
}

func (s *BlogService) ByAuthor(ctx context.Context, authorID int64) ([]models.Blog, error) {
	return s.blogs.ListByAuthor(ctx, authorID)
}

func (s *BlogService) Saved(ctx context.Context, userID int64) ([]models.Blog, error) {
	return s.blogs.ListSaved(ctx, userID)
}

func (s *BlogService) Get(ctx context.Context, id int64, viewerID int64) (models.Blog, error) {
	blog, err := s.blogs.Get(ctx, id, viewerID)
	return blog, mapBlogError(err)
}

// ForEdit returns a post only to its author.
func (s *BlogService) ForEdit(ctx context.Context, id int64, userID int64) (models.Blog, error) {
	blog, err := s.blogs.Get(ctx, id, userID)
	if err != nil {
		return models.Blog{}, mapBlogError(err)
	}
	if blog.AuthorID != userID {
		return models.Blog{}, ErrForbidden
	}
	return blog, nil
}

func (s *BlogService) Create(ctx context.Context, authorID int64, input BlogInput) (models.Blog, error) {
	input, err := validateBlog(input)
	if err != nil {
		return models.Blog{}, err
	}

	blog := models.Blog{AuthorID: authorID, Title: input.Title, Description: input.Description}
	if input.Image != nil {
		imageID, err := s.images.Save(ctx, *input.Image)
		if err != nil {
			return models.Blog{}, err
		}
		blog.ImageID = &imageID
	}

	if err := s.blogs.Create(ctx, &blog); err != nil {
		return models.Blog{}, err
	}
	s.log.Info().Int64("blog_id", blog.ID).Int64("author_id", authorID).Msg("blog created")
	return blog, nil
}

func (s *BlogService) Update(ctx context.Context, authorID int64, id int64, input BlogInput) error {
	input, err := validateBlog(input)
	if err != nil {
		return err
	}

	owner, err := s.blogs.AuthorOf(ctx, id)
	if err != nil {
		return mapBlogError(err)
	}
	if owner != authorID {
		return ErrForbidden
	}

	blog := models.Blog{ID: id, AuthorID: authorID, Title: input.Title, Description: input.Description}
	if input.Image != nil {
		imageID, err := s.images.Save(ctx, *input.Image)
		if err != nil {
			return err
		}
		blog.ImageID = &imageID
	}

	return mapBlogError(s.blogs.Update(ctx, blog))
}

func (s *BlogService) Delete(ctx context.Context, authorID int64, id int64) error {
	if err := s.blogs.Delete(ctx, id, authorID); err != nil {
		return mapBlogError(err)
	}
	s.log.Info().Int64("blog_id", id).Int64("author_id", authorID).Msg("blog deleted")
	return nil
}

func (s *BlogService) ToggleSave(ctx context.Context, userID int64, blogID int64) (bool, error) {
	saved, err := s.saved.Toggle(ctx, userID, blogID)
	return saved, mapBlogError(err)
}

func (s *BlogService) SetSaved(ctx context.Context, userID int64, blogID int64, saved bool) error {
	return mapBlogError(s.saved.Set(ctx, userID, blogID, saved))
}

func (s *BlogService) UpdateProfileImage(ctx context.Context, userID int64, upload Upload) (int64, error) {
	imageID, err := s.images.Save(ctx, upload)
	if err != nil {
		return 0, err
	}
	if err := s.users.UpdateImage(ctx, userID, imageID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return imageID, nil
}

func validateBlog(input BlogInput) (BlogInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" || input.Description == "" {
		return input, invalid("Title and description are required.")
	}
	if utf8.RuneCountInString(input.Title) > maxTitleRunes {
		return input, invalid("Titles are limited to 200 characters.")
	}
	if utf8.RuneCountInString(input.Description) > maxDescriptionRunes {
		return input, invalid("Posts are limited to 20000 characters.")
	}
	return input, nil
}

func mapBlogError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrBlogNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrNotBlogOwner):
		return ErrForbidden
	default:
		return err
	}
}
