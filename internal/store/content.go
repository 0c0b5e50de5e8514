package store

import (
	"context"
	"fmt"

	"github.com/midnightspa/platform/internal/models"
)

// Content entities exist here for the sitemap and the admin dashboard; the
// public pages render from them elsewhere.

func CreatePost(ctx context.Context, q Querier, slug, title string, published bool) (*models.Post, error) {
	post := &models.Post{}

	query := `
		INSERT INTO posts (slug, title, published, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, slug, title, published, created_at, updated_at`

	err := q.QueryRowContext(ctx, query, slug, title, published).Scan(
		&post.ID, &post.Slug, &post.Title, &post.Published, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	return post, nil
}

func SetPostPublished(ctx context.Context, q Querier, id int64, published bool) error {
	_, err := q.ExecContext(ctx,
		`UPDATE posts SET published = $1, updated_at = NOW() WHERE id = $2`,
		published, id)
	if err != nil {
		return fmt.Errorf("set post published: %w", err)
	}
	return nil
}

func ListPublishedPosts(ctx context.Context, q Querier) ([]models.Post, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, slug, title, published, created_at, updated_at
		 FROM posts WHERE published = TRUE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.Slug, &p.Title, &p.Published, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return posts, nil
}

func CreateVideo(ctx context.Context, q Querier, slug, title string, published bool) (*models.Video, error) {
	video := &models.Video{}

	query := `
		INSERT INTO videos (slug, title, published, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, slug, title, published, created_at, updated_at`

	err := q.QueryRowContext(ctx, query, slug, title, published).Scan(
		&video.ID, &video.Slug, &video.Title, &video.Published, &video.CreatedAt, &video.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}

	return video, nil
}

func ListPublishedVideos(ctx context.Context, q Querier) ([]models.Video, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, slug, title, published, created_at, updated_at
		 FROM videos WHERE published = TRUE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list published videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ID, &v.Slug, &v.Title, &v.Published, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return videos, nil
}

func CreateCategory(ctx context.Context, q Querier, slug, title string, published bool) (*models.Category, error) {
	category := &models.Category{}

	query := `
		INSERT INTO categories (slug, title, published, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, slug, title, published, created_at, updated_at`

	err := q.QueryRowContext(ctx, query, slug, title, published).Scan(
		&category.ID, &category.Slug, &category.Title, &category.Published, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	return category, nil
}

func ListPublishedCategories(ctx context.Context, q Querier) ([]models.Category, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, slug, title, published, created_at, updated_at
		 FROM categories WHERE published = TRUE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list published categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Slug, &c.Title, &c.Published, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}

func CreateSubcategory(ctx context.Context, q Querier, categoryID int64, slug, title string, published bool) (*models.Subcategory, error) {
	sub := &models.Subcategory{}

	query := `
		INSERT INTO subcategories (category_id, slug, title, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, category_id, slug, title, published, created_at, updated_at`

	err := q.QueryRowContext(ctx, query, categoryID, slug, title, published).Scan(
		&sub.ID, &sub.CategoryID, &sub.Slug, &sub.Title, &sub.Published, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create subcategory: %w", err)
	}

	return sub, nil
}

func ListPublishedSubcategories(ctx context.Context, q Querier) ([]models.Subcategory, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, category_id, slug, title, published, created_at, updated_at
		 FROM subcategories WHERE published = TRUE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list published subcategories: %w", err)
	}
	defer rows.Close()

	var subs []models.Subcategory
	for rows.Next() {
		var s models.Subcategory
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Slug, &s.Title, &s.Published, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return subs, nil
}
