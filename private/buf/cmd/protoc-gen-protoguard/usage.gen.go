// Generated. DO NOT EDIT.

package generate

import _ "github.com/bufbuild/protoguard/private/usage"
