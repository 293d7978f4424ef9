// Generated. DO NOT EDIT.

package thread

import _ "github.com/bufbuild/protoguard/private/usage"
