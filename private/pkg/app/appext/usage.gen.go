// Generated. DO NOT EDIT.

package appext

import _ "github.com/bufbuild/protoguard/private/usage"
