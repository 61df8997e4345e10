package vfs

// triplet selects the permission triplet that applies to p for e.
//
// Owner match uses the first triplet, membership in the entry's group the
// second, everyone else the third.
func triplet(p Principal, e *Entry) Permission {
	switch {
	case e.Owner == p.Name():
		return e.Permissions.Owner()
	case p.InGroup(e.Group):
		return e.Permissions.Group()
	default:
		return e.Permissions.Other()
	}
}

// Allowed reports whether p may perform want on e. Admins always may.
func Allowed(p Principal, e *Entry, want Permission) bool {
	if p.IsAdmin() {
		return true
	}
	return triplet(p, e).Has(want)
}

// check returns ErrPermissionDenied when p lacks want on e.
func check(p Principal, e *Entry, want Permission) error {
	if Allowed(p, e, want) {
		return nil
	}
	return newError(ErrPermissionDenied, e.Path, "%s permission denied for %s", want.action(), p.Name())
}

// checkOwner allows only the entry owner or an admin.
func checkOwner(p Principal, e *Entry) error {
	if p.IsAdmin() || e.Owner == p.Name() {
		return nil
	}
	return newError(ErrPermissionDenied, e.Path, "only the owner may do this, not %s", p.Name())
}

// checkRemove guards unlinking e from parent, as Delete and Move do.
//
// p needs delete permission on parent. Like a sticky directory, it must also
// own e, own parent, or hold write permission on e itself.
func checkRemove(p Principal, parent, e *Entry) error {
	if err := check(p, parent, PermDelete); err != nil {
		return err
	}
	if p.IsAdmin() || e.Owner == p.Name() || parent.Owner == p.Name() || Allowed(p, e, PermWrite) {
		return nil
	}
	return newError(ErrPermissionDenied, e.Path, "%s may not remove an entry owned by %s", p.Name(), e.Owner)
}
