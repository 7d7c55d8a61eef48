package storage

import "fmt"

// ACL is an S3 canned access control list.
type ACL string

const (
	ACLPrivate                ACL = "private"
	ACLPublicRead             ACL = "public-read"
	ACLPublicReadWrite        ACL = "public-read-write"
	ACLAuthenticatedRead      ACL = "authenticated-read"
	ACLBucketOwnerRead        ACL = "bucket-owner-read"
	ACLBucketOwnerFullControl ACL = "bucket-owner-full-control"
)

// Valid reports whether a is a known canned ACL.
func (a ACL) Valid() bool {
	switch a {
	case ACLPrivate, ACLPublicRead, ACLPublicReadWrite, ACLAuthenticatedRead,
		ACLBucketOwnerRead, ACLBucketOwnerFullControl:
		return true
	default:
		return false
	}
}

// ParseACL validates s as a canned ACL.
func ParseACL(s string) (ACL, error) {
	a := ACL(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidACL, s)
	}
	return a, nil
}

// Grant is a single permission entry of an object's ACL.
type Grant struct {
	Grantee    string `json:"grantee"`
	Permission string `json:"permission"`
}

// ACLInfo describes an object's access control.
type ACLInfo struct {
	// Canned is the canned ACL that produces the grants. It is empty when
	// the grants name a user other than the owner, which is how the
	// bucket-owner variants surface.
	Canned ACL     `json:"canned,omitempty"`
	Owner  string  `json:"owner,omitempty"`
	Grants []Grant `json:"grants"`
}

const (
	groupAllUsers           = "http://acs.amazonaws.com/groups/global/AllUsers"
	groupAuthenticatedUsers = "http://acs.amazonaws.com/groups/global/AuthenticatedUsers"
)

// cannedFromGrants maps a grant list back to the canned ACL that produces it.
// A grant to any user other than ownerID has no canned equivalent that can
// be told apart reliably, so the empty ACL is returned.
func cannedFromGrants(ownerID string, grants []Grant) ACL {
	var allRead, allWrite, authRead bool
	for _, g := range grants {
		switch g.Grantee {
		case groupAllUsers:
			allRead = allRead || g.Permission == "READ"
			allWrite = allWrite || g.Permission == "WRITE"
		case groupAuthenticatedUsers:
			authRead = authRead || g.Permission == "READ"
		default:
			if ownerID != "" && g.Grantee != ownerID {
				return ""
			}
		}
	}
	switch {
	case allRead && allWrite:
		return ACLPublicReadWrite
	case allRead:
		return ACLPublicRead
	case authRead:
		return ACLAuthenticatedRead
	default:
		return ACLPrivate
	}
}
