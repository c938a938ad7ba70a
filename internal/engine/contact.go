package engine

import (
	"bytes"

	"groupsync/internal/model"
)

// maxPhotoBytes caps the base64-encoded size of a surfaced contact
// photo; oversized photos would destabilize the host protocol driver,
// so they are silently dropped.
const maxPhotoBytes = 49152

// contactTranscoder converts between stored contact rows and the
// protocol-neutral ContactItem.
type contactTranscoder struct {
	e *Engine
}

var _ transcoder = (*contactTranscoder)(nil)

func (t *contactTranscoder) List(sess *Session, containerID int64, cutoff int64) ([]model.ItemStat, error) {
	contacts, err := t.e.db.ListContacts(sess.UserID())
	if err != nil {
		return nil, err
	}
	mods, err := t.e.changeMarkers(sess.UserID(), model.ChangeKindContact)
	if err != nil {
		return nil, err
	}
	stats := make([]model.ItemStat, 0, len(contacts))
	for _, c := range contacts {
		stats = append(stats, model.ItemStat{ID: c.ID, Mod: mods[c.ID], Flag: 1})
	}
	return stats, nil
}

func (t *contactTranscoder) Stat(sess *Session, itemID int64) (*model.ItemStat, error) {
	c, err := t.e.db.FindContact(sess.UserID(), itemID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	mod, err := t.e.changeMarker(model.ChangeKindContact, itemID)
	if err != nil {
		return nil, err
	}
	return &model.ItemStat{ID: c.ID, Mod: mod, Flag: 1}, nil
}

func (t *contactTranscoder) Fetch(sess *Session, itemID int64, opts RenderOptions) (Item, error) {
	c, err := t.e.db.FindContact(sess.UserID(), itemID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}

	item := &ContactItem{
		ID:          c.ID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		HomePhone:   c.HomePhone,
		HomeFax:     c.HomeFax,
		HomeStreet:  c.HomeStreet,
		HomeCity:    c.HomeCity,
		HomeZip:     c.HomeZip,
		HomeCountry: c.HomeCountry,
		WorkStreet:  c.WorkStreet,
		WorkZip:     c.WorkZip,
		WorkCity:    c.WorkCity,
		WorkCountry: c.WorkCountry,
		WorkEmail:   c.WorkEmail,
		WorkPhone:   c.WorkPhone,
		WorkFax:     c.WorkFax,
		WorkMobile:  c.WorkMobile,
		Email:       c.Email,
		Web:         c.Web,
		Mobile:      c.Mobile,
		Company:     c.Company,
		JobTitle:    c.JobTitle,
		Birthday:    c.Birthday,
		Notes:       c.Notes,
	}
	if len(c.Picture) > 0 && encodedPhotoSize(len(c.Picture)) <= maxPhotoBytes {
		item.Photo = c.Picture
		item.PhotoType = c.PictureType
	}
	return item, nil
}

// encodedPhotoSize estimates the base64-encoded size of a photo.
func encodedPhotoSize(rawLen int) int {
	return int(float64(rawLen) * 1.34)
}

func (t *contactTranscoder) Apply(sess *Session, containerID, itemID int64, item Item) (int64, error) {
	ci, ok := item.(*ContactItem)
	if !ok {
		return 0, ErrUnsupported
	}
	now := t.e.clock.Now().Unix()

	var c *model.Contact
	if itemID > 0 {
		existing, err := t.e.db.FindContact(sess.UserID(), itemID)
		if err != nil {
			return 0, err
		}
		if existing == nil {
			return 0, ErrNotFound
		}
		c = existing
	} else {
		c = &model.Contact{UserID: sess.UserID()}
	}

	c.FirstName = ci.FirstName
	c.LastName = ci.LastName
	c.HomePhone = ci.HomePhone
	c.HomeFax = ci.HomeFax
	c.HomeStreet = ci.HomeStreet
	c.HomeCity = ci.HomeCity
	c.HomeZip = ci.HomeZip
	c.HomeCountry = ci.HomeCountry
	c.WorkStreet = ci.WorkStreet
	c.WorkZip = ci.WorkZip
	c.WorkCity = ci.WorkCity
	c.WorkCountry = ci.WorkCountry
	c.WorkEmail = ci.WorkEmail
	c.WorkPhone = ci.WorkPhone
	c.WorkFax = ci.WorkFax
	c.WorkMobile = ci.WorkMobile
	c.Email = ci.Email
	c.Web = ci.Web
	c.Mobile = ci.Mobile
	c.Company = ci.Company
	c.JobTitle = ci.JobTitle
	c.Birthday = ci.Birthday
	c.Notes = ci.Notes
	if len(ci.Photo) > 0 {
		c.Picture = ci.Photo
		c.PictureType = sniffImageType(ci.Photo)
	} else {
		c.Picture = nil
		c.PictureType = ""
	}

	var id int64
	if itemID > 0 {
		if err := t.e.db.UpdateContact(c); err != nil {
			return 0, err
		}
		id = c.ID
		if err := t.e.db.MarkUpdated(sess.UserID(), model.ChangeKindContact, id, now); err != nil {
			return 0, err
		}
	} else {
		newID, err := t.e.db.InsertContact(c)
		if err != nil {
			return 0, err
		}
		id = newID
		if err := t.e.db.MarkCreated(sess.UserID(), model.ChangeKindContact, id, now); err != nil {
			return 0, err
		}
	}
	if err := t.e.db.BumpGeneration(sess.UserID()); err != nil {
		return 0, err
	}
	return id, nil
}

// sniffImageType detects the picture format from its magic bytes.
func sniffImageType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("GIF8")):
		return "image/gif"
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff, 0xe0}):
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		return "image/png"
	default:
		return "image/unknown"
	}
}

func (t *contactTranscoder) Delete(sess *Session, itemID int64) (bool, error) {
	c, err := t.e.db.FindContact(sess.UserID(), itemID)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, nil
	}
	if err := t.e.db.DeleteContact(sess.UserID(), itemID); err != nil {
		return false, err
	}
	now := t.e.clock.Now().Unix()
	if err := t.e.db.MarkDeleted(sess.UserID(), model.ChangeKindContact, itemID, now); err != nil {
		return false, err
	}
	if err := t.e.db.BumpGeneration(sess.UserID()); err != nil {
		return false, err
	}
	return true, nil
}

// Move is meaningless for the contacts singleton.
func (t *contactTranscoder) Move(sess *Session, itemID, newContainerID int64) (bool, error) {
	return false, ErrUnsupported
}
