// Package workspace manages the local scratch directories a release run
// needs, such as the staging area for the downloaded web index.
//
// Each Create makes a fresh timestamped directory (e.g.
// gwcrelease-20160307-122336-123456) that Cleanup removes completely.
package workspace
