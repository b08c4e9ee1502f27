package service_test

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"bugboard/internal/domain"
	"bugboard/internal/repo"
	"bugboard/internal/service"
	"bugboard/internal/storage"
)

func TestDeleteProjectRemovesTreeAndFiles(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)
	p := e.project(c, "Apollo")
	keep := e.project(c, "Gemini")

	is, err := e.svc.Issues.Create(ctx, e.ada, p.ID, bug("x"), pngs(1))
	c.Assert(err, qt.IsNil)
	cm, err := e.svc.Comments.Create(ctx, e.bob, is.ID, "repro attached", pngs(1))
	c.Assert(err, qt.IsNil)
	other, err := e.svc.Issues.Create(ctx, e.ada, keep.ID, bug("y"), pngs(1))
	c.Assert(err, qt.IsNil)
	c.Assert(e.files(c), qt.HasLen, 3)

	c.Assert(e.svc.Projects.Delete(ctx, p.ID), qt.IsNil)

	countByID := func(model any, id string) int64 {
		var n int64
		c.Assert(e.db.Model(model).Where("id = ?", id).Count(&n).Error, qt.IsNil)
		return n
	}
	c.Assert(countByID(&domain.Issue{}, is.ID), qt.Equals, int64(0))
	c.Assert(countByID(&domain.Comment{}, cm.ID), qt.Equals, int64(0))
	c.Assert(countByID(&domain.Attachment{}, is.Attachments[0].ID), qt.Equals, int64(0))
	c.Assert(countByID(&domain.Attachment{}, cm.Attachments[0].ID), qt.Equals, int64(0))
	c.Assert(e.files(c), qt.DeepEquals, []string{other.Attachments[0].StoredName})

	c.Assert(errors.Is(e.svc.Projects.Delete(ctx, p.ID), domain.ErrProjectNotFound), qt.IsTrue)
}

func TestDeleteProjectStorageFailureKeepsRowDeletion(t *testing.T) {
	c := qt.New(t)
	mem := storage.NewMem("/uploads")
	e := newEnv(c, envOpt{store: brokenDelete{mem}})
	p := e.project(c, "Apollo")
	_, err := e.svc.Issues.Create(ctx, e.ada, p.ID, bug("x"), pngs(2))
	c.Assert(err, qt.IsNil)

	c.Assert(e.svc.Projects.Delete(ctx, p.ID), qt.IsNil)
	c.Assert(e.count(c, &domain.Project{}), qt.Equals, int64(0))
	c.Assert(e.count(c, &domain.Attachment{}), qt.Equals, int64(0))
	c.Assert(e.logs.FilterMessage("storage cleanup failed").Len(), qt.Equals, 2)

	// 遗留的孤儿文件由清扫回收
	res, err := e.svc.Attachments.Sweep(ctx, true)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Orphaned, qt.HasLen, 2)
}

func TestDeleteCommentRemovesItsAttachments(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)
	p := e.project(c, "Apollo")
	is, err := e.svc.Issues.Create(ctx, e.ada, p.ID, bug("x"), pngs(1))
	c.Assert(err, qt.IsNil)
	cm, err := e.svc.Comments.Create(ctx, e.bob, is.ID, "see attached", pngs(2))
	c.Assert(err, qt.IsNil)
	c.Assert(e.files(c), qt.HasLen, 3)

	c.Assert(errors.Is(e.svc.Comments.Delete(ctx, e.ada, cm.ID), domain.ErrForbidden), qt.IsTrue)
	c.Assert(e.svc.Comments.Delete(ctx, e.bob, cm.ID), qt.IsNil)
	c.Assert(e.files(c), qt.DeepEquals, []string{is.Attachments[0].StoredName})
}

func TestCommentCreateRules(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)
	p := e.project(c, "Apollo")
	is, err := e.svc.Issues.Create(ctx, e.ada, p.ID, bug("x"), nil)
	c.Assert(err, qt.IsNil)

	_, err = e.svc.Comments.Create(ctx, e.bob, is.ID, "", nil)
	c.Assert(errors.Is(err, domain.ErrFieldRequired), qt.IsTrue)
	_, err = e.svc.Comments.Create(ctx, e.bob, is.ID, "x", pngs(4))
	c.Assert(errors.Is(err, domain.ErrTooManyAttachments), qt.IsTrue)
	_, err = e.svc.Comments.Create(ctx, e.bob, "missing", "x", pngs(1))
	c.Assert(errors.Is(err, domain.ErrIssueNotFound), qt.IsTrue)
	c.Assert(e.files(c), qt.HasLen, 0)

	cm, err := e.svc.Comments.Create(ctx, e.bob, is.ID, "x", pngs(3))
	c.Assert(err, qt.IsNil)
	c.Assert(*cm.Attachments[0].CommentID, qt.Equals, cm.ID)
	c.Assert(cm.Attachments[0].IssueID, qt.IsNil)

	items, total, err := e.svc.Comments.List(ctx, is.ID, repo.PageOf(1, 50))
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, int64(1))
	c.Assert(items[0].Attachments, qt.HasLen, 3)
}

func TestUserDeletePolicies(t *testing.T) {
	c := qt.New(t)

	c.Run("self delete forbidden", func(c *qt.C) {
		e := newEnv(c)
		err := e.svc.Users.Delete(ctx, e.admin, e.admin.UserID)
		c.Assert(errors.Is(err, domain.ErrSelfDelete), qt.IsTrue)
		c.Assert(domain.KindOf(err), qt.Equals, domain.KindForbidden)
	})

	c.Run("block with content", func(c *qt.C) {
		e := newEnv(c, envOpt{policy: service.DeleteBlock})
		p := e.project(c, "Apollo")
		_, err := e.svc.Issues.Create(ctx, e.ada, p.ID, bug("x"), pngs(1))
		c.Assert(err, qt.IsNil)

		err = e.svc.Users.Delete(ctx, e.admin, e.ada.UserID)
		c.Assert(errors.Is(err, domain.ErrUserHasContent), qt.IsTrue)
		c.Assert(e.files(c), qt.HasLen, 1)

		// 没有内容的用户可以删
		c.Assert(e.svc.Users.Delete(ctx, e.admin, e.bob.UserID), qt.IsNil)
	})

	c.Run("cascade", func(c *qt.C) {
		e := newEnv(c)
		p := e.project(c, "Apollo")
		adaIssue, err := e.svc.Issues.Create(ctx, e.ada, p.ID, bug("x"), pngs(1))
		c.Assert(err, qt.IsNil)
		bobIssue, err := e.svc.Issues.Create(ctx, e.bob, p.ID, bug("y"), nil)
		c.Assert(err, qt.IsNil)
		_, err = e.svc.Comments.Create(ctx, e.ada, bobIssue.ID, "me too", pngs(1))
		c.Assert(err, qt.IsNil)
		_, err = e.svc.Comments.Create(ctx, e.bob, adaIssue.ID, "ack", nil)
		c.Assert(err, qt.IsNil)

		c.Assert(e.svc.Users.Delete(ctx, e.admin, e.ada.UserID), qt.IsNil)
		c.Assert(e.files(c), qt.HasLen, 0)
		c.Assert(e.count(c, &domain.Issue{}), qt.Equals, int64(1))
		c.Assert(e.count(c, &domain.Comment{}), qt.Equals, int64(0))

		_, err = e.svc.Users.Get(ctx, e.ada.UserID)
		c.Assert(errors.Is(err, domain.ErrUserNotFound), qt.IsTrue)
	})
}
