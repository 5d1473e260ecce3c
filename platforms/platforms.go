// Package platforms registers every built-in platform with the default
// registry. Import it for side effects:
//
//	import _ "github.com/mirrorbeam/social-archiver/platforms"
package platforms

import (
	_ "github.com/mirrorbeam/social-archiver/platform/rutube"
	_ "github.com/mirrorbeam/social-archiver/platform/tiktok"
	_ "github.com/mirrorbeam/social-archiver/platform/vk"
	_ "github.com/mirrorbeam/social-archiver/platform/youtube"
)
