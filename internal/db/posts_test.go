package db

import (
	"context"
	"testing"

	"github.com/farmlink/farmlink/internal/models"
)

func TestLikeToggleKeepsCounterConsistent(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	posts := NewPostRepository(repo)
	likes := NewLikeRepository(repo)
	ctx := context.Background()

	author := createTestUser(t, gdb, "author")
	reader := createTestUser(t, gdb, "reader")
	post := createTestPost(t, gdb, author, "first harvest")

	liked, err := likes.Toggle(ctx, post.ID, reader.ID)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if !liked {
		t.Error("Expected liked=true after first toggle")
	}

	fresh, err := posts.GetByID(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fresh.LikeCount != 1 {
		t.Errorf("Expected like_count 1, got %d", fresh.LikeCount)
	}

	// Toggling again removes the row and restores the counter.
	liked, err = likes.Toggle(ctx, post.ID, reader.ID)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if liked {
		t.Error("Expected liked=false after second toggle")
	}

	fresh, _ = posts.GetByID(ctx, post.ID)
	if fresh.LikeCount != 0 {
		t.Errorf("Expected like_count 0 after double toggle, got %d", fresh.LikeCount)
	}

	var rows int64
	gdb.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&rows)
	if rows != 0 {
		t.Errorf("Expected no like rows after double toggle, got %d", rows)
	}
}

func TestCountersMatchRowsAfterSequence(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	posts := NewPostRepository(repo)
	likes := NewLikeRepository(repo)
	comments := NewCommentRepository(repo)
	ctx := context.Background()

	author := createTestUser(t, gdb, "author")
	u1 := createTestUser(t, gdb, "u1")
	u2 := createTestUser(t, gdb, "u2")
	post := createTestPost(t, gdb, author, "soil health")

	// Arbitrary interleaving of likes and comments.
	likes.Toggle(ctx, post.ID, u1.ID)
	likes.Toggle(ctx, post.ID, u2.ID)
	likes.Toggle(ctx, post.ID, u1.ID) // unlike

	c1 := &models.Comment{PostID: post.ID, UserID: u1.ID, Content: "great read"}
	c2 := &models.Comment{PostID: post.ID, UserID: u2.ID, Content: "thanks"}
	if err := comments.Create(ctx, c1); err != nil {
		t.Fatalf("Create comment failed: %v", err)
	}
	if err := comments.Create(ctx, c2); err != nil {
		t.Fatalf("Create comment failed: %v", err)
	}
	if err := comments.Delete(ctx, c1); err != nil {
		t.Fatalf("Delete comment failed: %v", err)
	}

	fresh, err := posts.GetByID(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	likeRows, _ := posts.LikeCountFor(ctx, post.ID)
	commentRows, _ := posts.CommentCountFor(ctx, post.ID)

	if fresh.LikeCount != likeRows {
		t.Errorf("like_count %d does not match %d like rows", fresh.LikeCount, likeRows)
	}
	if fresh.CommentCount != commentRows {
		t.Errorf("comment_count %d does not match %d comment rows", fresh.CommentCount, commentRows)
	}
	if fresh.LikeCount != 1 || fresh.CommentCount != 1 {
		t.Errorf("Expected counts (1, 1), got (%d, %d)", fresh.LikeCount, fresh.CommentCount)
	}
}

func TestCommentCountFloorsAtZero(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	posts := NewPostRepository(repo)
	comments := NewCommentRepository(repo)
	ctx := context.Background()

	author := createTestUser(t, gdb, "author")
	post := createTestPost(t, gdb, author, "pest control")

	c := &models.Comment{PostID: post.ID, UserID: author.ID, Content: "note"}
	if err := comments.Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := comments.Delete(ctx, c); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	// A second delete of the same row must not push the counter below
	// zero.
	if err := comments.Delete(ctx, c); err != nil {
		t.Fatalf("Second delete failed: %v", err)
	}

	fresh, _ := posts.GetByID(ctx, post.ID)
	if fresh.CommentCount != 0 {
		t.Errorf("Expected comment_count floored at 0, got %d", fresh.CommentCount)
	}
}

func TestCommentDoubleDeleteKeepsCounterConsistent(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	posts := NewPostRepository(repo)
	comments := NewCommentRepository(repo)
	ctx := context.Background()

	author := createTestUser(t, gdb, "author")
	post := createTestPost(t, gdb, author, "irrigation")

	c1 := &models.Comment{PostID: post.ID, UserID: author.ID, Content: "first"}
	c2 := &models.Comment{PostID: post.ID, UserID: author.ID, Content: "second"}
	if err := comments.Create(ctx, c1); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := comments.Create(ctx, c2); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Two requests fetched the same comment before either deleted it.
	// Only the delete that removed the row may move the counter.
	if err := comments.Delete(ctx, c1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := comments.Delete(ctx, c1); err != nil {
		t.Fatalf("Repeated delete failed: %v", err)
	}

	fresh, err := posts.GetByID(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	rows, _ := posts.CommentCountFor(ctx, post.ID)
	if rows != 1 {
		t.Fatalf("Expected 1 comment row, got %d", rows)
	}
	if fresh.CommentCount != rows {
		t.Errorf("comment_count %d does not match %d comment rows", fresh.CommentCount, rows)
	}
}

func TestPostDeleteCascades(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	posts := NewPostRepository(repo)
	likes := NewLikeRepository(repo)
	comments := NewCommentRepository(repo)
	ctx := context.Background()

	author := createTestUser(t, gdb, "author")
	reader := createTestUser(t, gdb, "reader")
	post := createTestPost(t, gdb, author, "crop rotation")

	likes.Toggle(ctx, post.ID, reader.ID)
	comments.Create(ctx, &models.Comment{PostID: post.ID, UserID: reader.ID, Content: "useful"})

	if err := posts.Delete(ctx, post.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var likeRows, commentRows, postRows int64
	gdb.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likeRows)
	gdb.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&commentRows)
	gdb.Model(&models.Post{}).Where("id = ?", post.ID).Count(&postRows)

	if likeRows != 0 || commentRows != 0 || postRows != 0 {
		t.Errorf("Expected no orphan rows after post delete, got likes=%d comments=%d posts=%d",
			likeRows, commentRows, postRows)
	}
}

func TestPostListFilters(t *testing.T) {
	gdb := newTestDB(t)
	posts := NewPostRepository(NewRepository(gdb))
	ctx := context.Background()

	alice := createTestUser(t, gdb, "alice")
	bob := createTestUser(t, gdb, "bob")

	p1 := createTestPost(t, gdb, alice, "one")
	gdb.Model(p1).Update("category", "Maize Growers")
	createTestPost(t, gdb, alice, "two")
	createTestPost(t, gdb, bob, "three")

	byCategory, pag, err := posts.List(ctx, "Maize Growers", 0, 1, 20)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(byCategory) != 1 || pag.Total != 1 {
		t.Errorf("Expected 1 post in category, got %d (total %d)", len(byCategory), pag.Total)
	}

	byAuthor, pag, err := posts.List(ctx, "", alice.ID, 1, 20)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(byAuthor) != 2 || pag.Total != 2 {
		t.Errorf("Expected 2 posts by alice, got %d (total %d)", len(byAuthor), pag.Total)
	}
}
