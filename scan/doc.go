// Package scan provides concurrent discovery of project directories: the
// directories under one or more roots that contain an entry matching a
// sentinel pattern, with descent pruned at the first match in each subtree.
//
// This package is the public face of the `pj` command. The scan fans out
// across a pool of workers over a shared work queue, so very large source
// trees are covered at interactive speed.
//
//	// Collect every git project under ~/src
//	opts := scan.NewOptions(`^\.git$`, os.ExpandEnv("$HOME/src"))
//	paths, err := scan.FindAll(context.Background(), opts)
//
//	// Handler-based consumption
//	err := scan.Scan(context.Background(), opts, func(ctx context.Context, m scan.Match) error {
//		fmt.Println(m.Path)
//		return nil
//	})
//
//	// Stop after the first match
//	err := scan.Scan(context.Background(), opts, func(ctx context.Context, m scan.Match) error {
//		fmt.Println(m.Path)
//		return scan.ErrStopScan
//	})
//
//	// Channel-based consumption with a separate diagnostics stream
//	matches, errs, err := scan.Stream(context.Background(), opts)
//
// Symbolic links to directories are not followed unless
// Options.FollowSymlinks is set, and no cycle detection is performed.
package scan
