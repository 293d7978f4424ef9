// Generated. DO NOT EDIT.

package app

import _ "github.com/bufbuild/protoguard/private/usage"
