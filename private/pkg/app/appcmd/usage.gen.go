// Generated. DO NOT EDIT.

package appcmd

import _ "github.com/bufbuild/protoguard/private/usage"
